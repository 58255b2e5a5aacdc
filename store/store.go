// Package store is the gorm-backed persistence layer. It owns no business
// rules: status guards are passed in by the caller and reported back as a
// rows-affected boolean.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"annadan-api/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type DonationFilter struct {
	FoodType string
	Location string
	Now      time.Time
	Limit    int
	Offset   int
}

type RequestDirection string

const (
	DirectionSent     RequestDirection = "sent"
	DirectionReceived RequestDirection = "received"
)

type RequestFilter struct {
	UserID    string
	Direction RequestDirection
	Status    models.RequestStatus
	Limit     int
	Offset    int
}

// Repository is what the lifecycle engine needs from the backing store.
type Repository interface {
	CreateDonation(ctx context.Context, d *models.Donation) error
	GetDonation(ctx context.Context, id string) (*models.Donation, error)
	ListAvailableDonations(ctx context.Context, f DonationFilter) ([]models.Donation, error)
	ListDonationsByDonor(ctx context.Context, donorID string) ([]models.Donation, error)
	ListOpenDonationIDs(ctx context.Context) ([]string, error)
	UpdateDonationStatus(ctx context.Context, id string, from, to models.DonationStatus) (bool, error)

	CreatePickupRequest(ctx context.Context, p *models.PickupRequest) error
	GetPickupRequest(ctx context.Context, id string) (*models.PickupRequest, error)
	HasPendingRequest(ctx context.Context, donationID, requesterID string) (bool, error)
	CountRequests(ctx context.Context, donationID string, status models.RequestStatus, excludeID string) (int64, error)
	UpdatePickupRequestStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error)
	DeletePickupRequest(ctx context.Context, id string, status models.RequestStatus) (bool, error)
	ListPickupRequests(ctx context.Context, f RequestFilter) ([]models.PickupRequest, error)

	RecordStatusChange(ctx context.Context, c *models.StatusChange) error

	// Transaction runs fn in a transaction. Calling it again on the
	// repository handed to fn opens a nested transaction (savepoint).
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// isUniqueViolation covers drivers that do not implement gorm's error translator.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func page(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
