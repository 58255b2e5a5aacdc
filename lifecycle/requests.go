package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"annadan-api/apperr"
	"annadan-api/models"
	"annadan-api/statemachine"
	"annadan-api/store"
)

type PickupInput struct {
	DonationID string
	Message    *string
	PickupTime *time.Time
}

// CreatePickupRequest files a pending claim. The donation stays available.
func (e *Engine) CreatePickupRequest(ctx context.Context, callerID string, in PickupInput) (*models.PickupRequest, error) {
	if blank(in.DonationID) {
		return nil, apperr.Validation("Donation ID is required")
	}

	donation, err := e.GetDonation(ctx, in.DonationID)
	if err != nil {
		return nil, err
	}
	if donation.Status != models.DonationAvailable {
		return nil, apperr.InvalidState("Donation is not available")
	}
	if donation.DonorID == callerID {
		return nil, apperr.InvalidOperation("Cannot request your own donation")
	}

	pending, err := e.repo.HasPendingRequest(ctx, donation.ID, callerID)
	if err != nil {
		return nil, e.internal("check pending request", err)
	}
	if pending {
		return nil, errDuplicatePending
	}

	req := &models.PickupRequest{
		DonationID:  donation.ID,
		RequesterID: callerID,
		Message:     in.Message,
		PickupTime:  in.PickupTime,
		Status:      models.RequestPending,
	}
	err = e.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreatePickupRequest(ctx, req); err != nil {
			return err
		}
		return tx.RecordStatusChange(ctx, &models.StatusChange{
			Entity:    models.EntityPickupRequest,
			EntityID:  req.ID,
			ToStatus:  string(models.RequestPending),
			ChangedBy: callerID,
			Note:      "Pickup request created",
		})
	})
	if errors.Is(err, store.ErrDuplicate) {
		// lost the race against a concurrent request by the same requester
		return nil, errDuplicatePending
	}
	if err != nil {
		return nil, e.internal("create pickup request", err)
	}

	e.metrics.Transition(models.EntityPickupRequest, "", string(models.RequestPending))
	e.logger.Info("pickup request created",
		slog.String("request_id", req.ID),
		slog.String("donation_id", donation.ID),
		slog.String("requester_id", callerID))
	return req, nil
}

var errDuplicatePending = apperr.Conflict("You already have a pending request for this donation")

// GetPickupRequest is readable by the requester and by the donor of the donation
func (e *Engine) GetPickupRequest(ctx context.Context, callerID, requestID string) (*models.PickupRequest, error) {
	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != callerID && req.Donation.DonorID != callerID {
		return nil, apperr.Forbidden("Access denied")
	}
	return req, nil
}

func (e *Engine) loadRequest(ctx context.Context, requestID string) (*models.PickupRequest, error) {
	if blank(requestID) {
		return nil, apperr.Validation("Request ID is required")
	}
	req, err := e.repo.GetPickupRequest(ctx, requestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Pickup request not found")
	}
	if err != nil {
		return nil, e.internal("get pickup request", err)
	}
	if req.Donation == nil {
		return nil, apperr.NotFound("Donation not found")
	}
	return req, nil
}

var updatableStatuses = map[models.RequestStatus]bool{
	models.RequestApproved:  true,
	models.RequestRejected:  true,
	models.RequestCompleted: true,
}

// UpdatePickupRequestStatus applies a donor decision to a request, then moves
// the donation accordingly. The donation write is best-effort: it runs in a
// savepoint and its failure is logged, never returned.
func (e *Engine) UpdatePickupRequestStatus(ctx context.Context, callerID, requestID string, target models.RequestStatus) (*models.PickupRequest, error) {
	if !updatableStatuses[target] {
		return nil, apperr.Validation("Invalid status. Must be approved, rejected, or completed")
	}

	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Donation.DonorID != callerID {
		return nil, apperr.Forbidden("You can only update requests for your own donations")
	}
	if err := statemachine.CanTransitionRequest(req.Status, target, statemachine.ActorDonor); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidState,
			fmt.Sprintf("Cannot change a %s request to %s", req.Status, target), err)
	}
	if e.exclusiveApproval && target == models.RequestApproved && req.Donation.Status != models.DonationAvailable {
		return nil, apperr.InvalidState("Donation is no longer available")
	}

	from := req.Status
	err = e.repo.Transaction(ctx, func(tx store.Repository) error {
		ok, err := tx.UpdatePickupRequestStatus(ctx, req.ID, from, target)
		if err != nil {
			return err
		}
		if !ok {
			return errRequestChanged
		}
		if err := tx.RecordStatusChange(ctx, &models.StatusChange{
			Entity:     models.EntityPickupRequest,
			EntityID:   req.ID,
			FromStatus: string(from),
			ToStatus:   string(target),
			ChangedBy:  callerID,
		}); err != nil {
			return err
		}

		if err := tx.Transaction(ctx, func(inner store.Repository) error {
			return e.applyDonationEffect(ctx, inner, req, target, callerID)
		}); err != nil {
			e.metrics.DependentWriteFailed()
			e.logger.Warn("donation status update failed, needs reconciliation",
				slog.String("request_id", req.ID),
				slog.String("donation_id", req.DonationID),
				slog.String("request_status", string(target)),
				slog.String("error", err.Error()))
		}
		return nil
	})
	if errors.Is(err, errRequestChanged) {
		return nil, apperr.InvalidState("Pickup request was changed by another action, reload and try again")
	}
	if err != nil {
		return nil, e.internal("update pickup request", err)
	}

	e.metrics.Transition(models.EntityPickupRequest, string(from), string(target))
	e.logger.Info("pickup request updated",
		slog.String("request_id", req.ID),
		slog.String("from", string(from)),
		slog.String("to", string(target)))

	updated, err := e.repo.GetPickupRequest(ctx, req.ID)
	if err != nil {
		e.logger.Warn("fetch updated pickup request failed", slog.String("request_id", req.ID), slog.String("error", err.Error()))
		req.Status = target
		return req, nil
	}
	return updated, nil
}

var errRequestChanged = errors.New("pickup request status changed concurrently")

// applyDonationEffect moves the donation toward the status implied by the
// request transition. Situations where the donation must stay put are not errors.
func (e *Engine) applyDonationEffect(ctx context.Context, tx store.Repository, req *models.PickupRequest, target models.RequestStatus, callerID string) error {
	want, ok := statemachine.DonationTargetFor(target)
	if !ok {
		return nil
	}
	donation, err := tx.GetDonation(ctx, req.DonationID)
	if err != nil {
		return fmt.Errorf("load donation: %w", err)
	}
	current := donation.Status
	if current == want {
		return nil
	}

	if target == models.RequestRejected {
		// only releasing an actual reservation moves the donation back
		if current != models.DonationReserved {
			return nil
		}
		holders, err := tx.CountRequests(ctx, donation.ID, models.RequestApproved, req.ID)
		if err != nil {
			return fmt.Errorf("count approved requests: %w", err)
		}
		if holders > 0 {
			e.logger.Info("donation stays reserved by another approved request",
				slog.String("donation_id", donation.ID),
				slog.Int64("approved_requests", holders))
			return nil
		}
	}

	if err := statemachine.CanTransitionDonation(current, want); err != nil {
		return err
	}
	ok, err = tx.UpdateDonationStatus(ctx, donation.ID, current, want)
	if err != nil {
		return fmt.Errorf("update donation status: %w", err)
	}
	if !ok {
		return fmt.Errorf("donation %s left status %s concurrently", donation.ID, current)
	}
	if err := tx.RecordStatusChange(ctx, &models.StatusChange{
		Entity:     models.EntityDonation,
		EntityID:   donation.ID,
		FromStatus: string(current),
		ToStatus:   string(want),
		ChangedBy:  callerID,
		Note:       "Pickup request " + req.ID + " " + string(target),
	}); err != nil {
		return err
	}
	e.metrics.Transition(models.EntityDonation, string(current), string(want))
	return nil
}

// CancelPickupRequest withdraws a pending request. The donation is untouched.
func (e *Engine) CancelPickupRequest(ctx context.Context, callerID, requestID string) error {
	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequesterID != callerID {
		return apperr.Forbidden("You can only cancel your own requests")
	}
	if err := statemachine.CanCancelRequest(req.Status); err != nil {
		return errOnlyPending
	}

	err = e.repo.Transaction(ctx, func(tx store.Repository) error {
		ok, err := tx.DeletePickupRequest(ctx, req.ID, models.RequestPending)
		if err != nil {
			return err
		}
		if !ok {
			return errOnlyPending
		}
		return tx.RecordStatusChange(ctx, &models.StatusChange{
			Entity:     models.EntityPickupRequest,
			EntityID:   req.ID,
			FromStatus: string(models.RequestPending),
			ToStatus:   statusCancelled,
			ChangedBy:  callerID,
		})
	})
	if errors.Is(err, errOnlyPending) {
		return errOnlyPending
	}
	if err != nil {
		return e.internal("cancel pickup request", err)
	}

	e.metrics.Transition(models.EntityPickupRequest, string(models.RequestPending), statusCancelled)
	e.logger.Info("pickup request cancelled", slog.String("request_id", req.ID), slog.String("requester_id", callerID))
	return nil
}

var errOnlyPending = apperr.InvalidState("Only pending requests can be cancelled")

type RequestQuery struct {
	Direction store.RequestDirection
	Status    models.RequestStatus
	Limit     int
	Offset    int
}

var knownRequestStatuses = map[models.RequestStatus]bool{
	models.RequestPending:   true,
	models.RequestApproved:  true,
	models.RequestRejected:  true,
	models.RequestCompleted: true,
}

// ListPickupRequestsForUser lists requests the user sent or received, newest-first
func (e *Engine) ListPickupRequestsForUser(ctx context.Context, userID string, q RequestQuery) ([]models.PickupRequest, Pagination, error) {
	if q.Direction == "" {
		q.Direction = store.DirectionSent
	}
	if q.Direction != store.DirectionSent && q.Direction != store.DirectionReceived {
		return nil, Pagination{}, apperr.Validation("Invalid type. Must be sent or received")
	}
	if q.Status != "" && !knownRequestStatuses[q.Status] {
		return nil, Pagination{}, apperr.Validation("Invalid status filter")
	}

	limit, offset := normalizePage(q.Limit, q.Offset, defaultRequestLimit)
	requests, err := e.repo.ListPickupRequests(ctx, store.RequestFilter{
		UserID:    userID,
		Direction: q.Direction,
		Status:    q.Status,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, Pagination{}, e.internal("list pickup requests", err)
	}
	return requests, Pagination{Limit: limit, Offset: offset, HasMore: len(requests) == limit}, nil
}
