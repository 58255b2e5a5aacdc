package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"annadan-api/metrics"
	"annadan-api/models"
	"annadan-api/statemachine"
	"annadan-api/store"
)

// Reconciler re-derives each open donation's status from its pickup requests
// and repairs drift left behind by failed best-effort writes.
type Reconciler struct {
	repo     store.Repository
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

func NewReconciler(repo store.Repository, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *Reconciler {
	return &Reconciler{repo: repo, logger: logger, metrics: m, interval: interval}
}

var donationRank = map[models.DonationStatus]int{
	models.DonationAvailable: 0,
	models.DonationReserved:  1,
	models.DonationPickedUp:  2,
}

// Run sweeps every interval until ctx is done. A zero interval disables it.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("donation reconciler disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fixed, err := r.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("donation reconcile sweep failed", slog.String("error", err.Error()))
				continue
			}
			if fixed > 0 {
				r.logger.Info("donation reconcile sweep repaired donations", slog.Int("fixed", fixed))
			}
		}
	}
}

// RunOnce performs one sweep and returns how many donations were repaired
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	ids, err := r.repo.ListOpenDonationIDs(ctx)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fixed, err
		}
		changed, err := r.reconcile(ctx, id)
		if err != nil {
			r.logger.Warn("reconcile donation failed", slog.String("donation_id", id), slog.String("error", err.Error()))
			continue
		}
		if changed {
			fixed++
		}
	}
	return fixed, nil
}

func (r *Reconciler) reconcile(ctx context.Context, id string) (bool, error) {
	changed := false
	err := r.repo.Transaction(ctx, func(tx store.Repository) error {
		d, err := tx.GetDonation(ctx, id)
		if err != nil {
			return err
		}
		want, err := expectedStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if want == d.Status {
			return nil
		}
		// forward drift is always repaired; backward only along a machine edge
		if statemachine.CanTransitionDonation(d.Status, want) != nil && donationRank[want] < donationRank[d.Status] {
			return nil
		}
		ok, err := tx.UpdateDonationStatus(ctx, id, d.Status, want)
		if err != nil || !ok {
			return err
		}
		if err := tx.RecordStatusChange(ctx, &models.StatusChange{
			Entity:     models.EntityDonation,
			EntityID:   id,
			FromStatus: string(d.Status),
			ToStatus:   string(want),
			Note:       "Reconciled from pickup requests",
		}); err != nil {
			return err
		}
		changed = true
		r.metrics.Reconciled()
		r.metrics.Transition(models.EntityDonation, string(d.Status), string(want))
		r.logger.Info("donation status reconciled",
			slog.String("donation_id", id),
			slog.String("from", string(d.Status)),
			slog.String("to", string(want)))
		return nil
	})
	return changed, err
}

func expectedStatus(ctx context.Context, tx store.Repository, donationID string) (models.DonationStatus, error) {
	completed, err := tx.CountRequests(ctx, donationID, models.RequestCompleted, "")
	if err != nil {
		return "", err
	}
	if completed > 0 {
		return models.DonationPickedUp, nil
	}
	approved, err := tx.CountRequests(ctx, donationID, models.RequestApproved, "")
	if err != nil {
		return "", err
	}
	if approved > 0 {
		return models.DonationReserved, nil
	}
	return models.DonationAvailable, nil
}
