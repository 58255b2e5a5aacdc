package store

import (
	"context"

	"annadan-api/models"
)

func (s *Store) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *Store) ListRecipesByUser(ctx context.Context, userID string, limit, offset int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	err := page(q, limit, offset).Find(&recipes).Error
	return recipes, translate(err)
}

func (s *Store) CountRecipesByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("user_id = ?", userID).Count(&n).Error
	return n, translate(err)
}
