package store

import (
	"context"

	"annadan-api/models"
)

type FeedbackFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

func (s *Store) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	return translate(s.db.WithContext(ctx).Create(f).Error)
}

func (s *Store) ListFeedback(ctx context.Context, f FeedbackFilter) ([]models.Feedback, error) {
	q := s.db.WithContext(ctx).Preload("User").Order("created_at desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var items []models.Feedback
	err := page(q, f.Limit, f.Offset).Find(&items).Error
	return items, translate(err)
}
