package statemachine

import (
	"fmt"

	"annadan-api/models"
)

// DonationTransition is a donation status change and the request event that causes it
type DonationTransition struct {
	From    models.DonationStatus `json:"from"`
	To      models.DonationStatus `json:"to"`
	Trigger models.RequestStatus  `json:"trigger"`
}

// Donation status only moves forward, except a reservation released by rejection.
var donationTransitions = []DonationTransition{
	{From: models.DonationAvailable, To: models.DonationReserved, Trigger: models.RequestApproved},
	{From: models.DonationReserved, To: models.DonationPickedUp, Trigger: models.RequestCompleted},
	{From: models.DonationReserved, To: models.DonationAvailable, Trigger: models.RequestRejected},
}

var donationMap = func() map[[2]models.DonationStatus]bool {
	m := make(map[[2]models.DonationStatus]bool)
	for _, t := range donationTransitions {
		m[[2]models.DonationStatus{t.From, t.To}] = true
	}
	return m
}()

// DonationTargetFor returns the donation status a request transition drives toward
func DonationTargetFor(to models.RequestStatus) (models.DonationStatus, bool) {
	switch to {
	case models.RequestApproved:
		return models.DonationReserved, true
	case models.RequestRejected:
		return models.DonationAvailable, true
	case models.RequestCompleted:
		return models.DonationPickedUp, true
	}
	return "", false
}

// CanTransitionDonation checks a donation status change. Staying put is not a transition.
func CanTransitionDonation(from, to models.DonationStatus) error {
	if donationMap[[2]models.DonationStatus{from, to}] {
		return nil
	}
	return fmt.Errorf("invalid donation transition: %s → %s", from, to)
}

// GetDonationTransitions returns the full donation state machine for documentation
func GetDonationTransitions() []DonationTransition {
	return donationTransitions
}
