package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"annadan-api/apperr"
	"annadan-api/models"
	"annadan-api/storage"
	"annadan-api/store"
)

type DonationInput struct {
	Title          string
	Description    string
	FoodType       models.FoodType
	Quantity       string
	ExpiryDate     time.Time
	PickupLocation string
	Contact        models.DonorContact
	Notes          string
	Image          *Image
}

// CreateDonation inserts exactly one available donation owned by the caller
func (e *Engine) CreateDonation(ctx context.Context, callerID string, in DonationInput) (*models.Donation, error) {
	if blank(in.Title) || in.FoodType == "" || blank(in.Quantity) || in.ExpiryDate.IsZero() || blank(in.PickupLocation) {
		return nil, apperr.Validation("Missing required fields")
	}
	if !in.FoodType.Valid() {
		return nil, apperr.Validation("Invalid food type")
	}
	if !in.ExpiryDate.After(e.now()) {
		return nil, apperr.Validation("Expiry date must be in the future")
	}

	donation := &models.Donation{
		DonorID:         callerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		FoodType:        in.FoodType,
		Quantity:        strings.TrimSpace(in.Quantity),
		ExpiryDate:      in.ExpiryDate.UTC(),
		PickupLocation:  strings.TrimSpace(in.PickupLocation),
		ImageURL:        e.UploadImage(ctx, in.Image, storage.KindFood),
		Status:          models.DonationAvailable,
		DonorContact:    in.Contact,
		AdditionalNotes: in.Notes,
	}

	err := e.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreateDonation(ctx, donation); err != nil {
			return err
		}
		return tx.RecordStatusChange(ctx, &models.StatusChange{
			Entity:    models.EntityDonation,
			EntityID:  donation.ID,
			ToStatus:  string(models.DonationAvailable),
			ChangedBy: callerID,
			Note:      "Donation created",
		})
	})
	if err != nil {
		return nil, e.internal("create donation", err)
	}
	e.metrics.Transition(models.EntityDonation, "", string(models.DonationAvailable))
	e.logger.Info("donation created",
		slog.String("donation_id", donation.ID),
		slog.String("donor_id", callerID))

	full, err := e.repo.GetDonation(ctx, donation.ID)
	if err != nil {
		e.logger.Warn("fetch created donation failed", slog.String("donation_id", donation.ID), slog.String("error", err.Error()))
		return donation, nil
	}
	return full, nil
}

func (e *Engine) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	d, err := e.repo.GetDonation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Donation not found")
	}
	if err != nil {
		return nil, e.internal("get donation", err)
	}
	return d, nil
}

type DonationQuery struct {
	FoodType string
	Location string
	Limit    int
	Offset   int
}

// ListDonations returns available, not yet expired donations newest-first
func (e *Engine) ListDonations(ctx context.Context, q DonationQuery) ([]models.Donation, Pagination, error) {
	limit, offset := normalizePage(q.Limit, q.Offset, defaultDonationLimit)
	donations, err := e.repo.ListAvailableDonations(ctx, store.DonationFilter{
		FoodType: q.FoodType,
		Location: strings.TrimSpace(q.Location),
		Now:      e.now().UTC(),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, Pagination{}, e.internal("list donations", err)
	}
	return donations, Pagination{Limit: limit, Offset: offset, HasMore: len(donations) == limit}, nil
}

// ListOwnDonations returns every donation of the caller, any status
func (e *Engine) ListOwnDonations(ctx context.Context, callerID string, limit, offset int) ([]models.Donation, Pagination, error) {
	limit, offset = normalizePage(limit, offset, defaultDonationLimit)
	donations, err := e.repo.ListDonationsByDonor(ctx, callerID)
	if err != nil {
		return nil, Pagination{}, e.internal("list own donations", err)
	}
	return donations, Pagination{Limit: limit, Offset: offset, HasMore: false}, nil
}
