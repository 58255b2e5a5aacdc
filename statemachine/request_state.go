package statemachine

import (
	"fmt"
	"strings"

	"annadan-api/models"
)

const (
	ActorDonor     = "donor"
	ActorRequester = "requester"
	ActorSystem    = "system"
)

// RequestTransition defines a valid pickup request state change and who can perform it
type RequestTransition struct {
	From  models.RequestStatus `json:"from"`
	To    models.RequestStatus `json:"to"`
	Actor string               `json:"actor"`
}

// requestTransitions is the authoritative pickup request state machine.
// Cancellation deletes the row, so it is modelled as a transition to "".
var requestTransitions = []RequestTransition{
	{From: models.RequestPending, To: models.RequestApproved, Actor: ActorDonor},
	{From: models.RequestPending, To: models.RequestRejected, Actor: ActorDonor},
	{From: models.RequestPending, To: "", Actor: ActorRequester},
	{From: models.RequestApproved, To: models.RequestCompleted, Actor: ActorDonor},
	// Rejecting the approving request is the only way a reservation is released
	{From: models.RequestApproved, To: models.RequestRejected, Actor: ActorDonor},
}

type requestKey struct {
	From  models.RequestStatus
	To    models.RequestStatus
	Actor string
}

var requestMap = func() map[requestKey]bool {
	m := make(map[requestKey]bool)
	for _, t := range requestTransitions {
		m[requestKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// RequestTransitionsFrom returns all valid next states from a given request state
func RequestTransitionsFrom(status models.RequestStatus) []models.RequestStatus {
	var nexts []models.RequestStatus
	seen := map[models.RequestStatus]bool{}
	for _, t := range requestTransitions {
		if t.From == status && t.To != "" && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransitionRequest checks if actor can move a pickup request from one state to another
func CanTransitionRequest(from, to models.RequestStatus, actor string) error {
	if requestMap[requestKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s → %s is not allowed for actor '%s'. Valid transitions from %s are: %s",
		from, describe(to), actor, from, describeRequestsFrom(from))
}

// CanCancelRequest checks whether the requester may withdraw a request in the given state
func CanCancelRequest(from models.RequestStatus) error {
	return CanTransitionRequest(from, "", ActorRequester)
}

func describe(s models.RequestStatus) string {
	if s == "" {
		return "cancelled"
	}
	return string(s)
}

func describeRequestsFrom(status models.RequestStatus) string {
	nexts := RequestTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetRequestTransitions returns the full pickup request state machine for documentation
func GetRequestTransitions() []RequestTransition {
	return requestTransitions
}
