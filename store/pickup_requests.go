package store

import (
	"context"

	"annadan-api/models"
)

func (s *Store) CreatePickupRequest(ctx context.Context, p *models.PickupRequest) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

// GetPickupRequest returns the request with its donation, donor and requester preloaded
func (s *Store) GetPickupRequest(ctx context.Context, id string) (*models.PickupRequest, error) {
	var p models.PickupRequest
	err := s.db.WithContext(ctx).
		Preload("Donation.Donor").
		Preload("Requester").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) HasPendingRequest(ctx context.Context, donationID, requesterID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.PickupRequest{}).
		Where("donation_id = ? AND requester_id = ? AND status = ?", donationID, requesterID, models.RequestPending).
		Count(&n).Error
	return n > 0, translate(err)
}

// CountRequests counts requests on a donation in a status, optionally ignoring one request
func (s *Store) CountRequests(ctx context.Context, donationID string, status models.RequestStatus, excludeID string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.PickupRequest{}).
		Where("donation_id = ? AND status = ?", donationID, status)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err)
}

// UpdatePickupRequestStatus is guarded by the expected current status
func (s *Store) UpdatePickupRequestStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PickupRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeletePickupRequest(ctx context.Context, id string, status models.RequestStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&models.PickupRequest{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListPickupRequests lists requests sent by, or received by, a user newest-first.
// Sent requests embed the donation and its donor, received ones the donation and the requester.
func (s *Store) ListPickupRequests(ctx context.Context, f RequestFilter) ([]models.PickupRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.PickupRequest{})
	switch f.Direction {
	case DirectionReceived:
		q = q.Joins("JOIN donations ON donations.id = pickup_requests.donation_id").
			Where("donations.donor_id = ?", f.UserID).
			Preload("Donation").
			Preload("Requester")
	default:
		q = q.Where("pickup_requests.requester_id = ?", f.UserID).
			Preload("Donation.Donor")
	}
	if f.Status != "" {
		q = q.Where("pickup_requests.status = ?", f.Status)
	}

	var requests []models.PickupRequest
	err := page(q.Order("pickup_requests.created_at desc"), f.Limit, f.Offset).Find(&requests).Error
	return requests, translate(err)
}

func (s *Store) RecordStatusChange(ctx context.Context, c *models.StatusChange) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *Store) ListStatusChanges(ctx context.Context, entity, entityID string) ([]models.StatusChange, error) {
	var changes []models.StatusChange
	err := s.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("id asc").
		Find(&changes).Error
	return changes, translate(err)
}
