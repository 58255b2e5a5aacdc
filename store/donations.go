package store

import (
	"context"
	"strings"

	"annadan-api/models"
)

func (s *Store) CreateDonation(ctx context.Context, d *models.Donation) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

// GetDonation returns the donation with its donor preloaded
func (s *Store) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	var d models.Donation
	if err := s.db.WithContext(ctx).Preload("Donor").First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// ListAvailableDonations returns available, non-expired donations newest-first
func (s *Store) ListAvailableDonations(ctx context.Context, f DonationFilter) ([]models.Donation, error) {
	q := s.db.WithContext(ctx).Preload("Donor").
		Where("status = ?", models.DonationAvailable).
		Where("expiry_date > ?", f.Now)

	if f.FoodType != "" && !strings.EqualFold(f.FoodType, "all") {
		q = q.Where("food_type = ?", f.FoodType)
	}
	if f.Location != "" {
		q = q.Where("LOWER(pickup_location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}

	var donations []models.Donation
	err := page(q.Order("created_at desc"), f.Limit, f.Offset).Find(&donations).Error
	return donations, translate(err)
}

func (s *Store) ListDonationsByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	var donations []models.Donation
	err := s.db.WithContext(ctx).Preload("Donor").
		Where("donor_id = ?", donorID).
		Order("created_at desc").
		Find(&donations).Error
	return donations, translate(err)
}

// ListOpenDonationIDs lists donations that can still change status
func (s *Store) ListOpenDonationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Donation{}).
		Where("status <> ?", models.DonationPickedUp).
		Pluck("id", &ids).Error
	return ids, translate(err)
}

// UpdateDonationStatus moves a donation from one status to another. It reports
// false when the donation was not in the expected status.
func (s *Store) UpdateDonationStatus(ctx context.Context, id string, from, to models.DonationStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) CountDonationsByDonor(ctx context.Context, donorID string, status models.DonationStatus) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Donation{}).Where("donor_id = ?", donorID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err)
}
