package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus represents all possible states of a pickup request
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCompleted
}

type PickupRequest struct {
	ID          string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	DonationID  string        `json:"donation_id" gorm:"type:varchar(36);not null;index"`
	Donation    *Donation     `json:"-" gorm:"foreignKey:DonationID"`
	RequesterID string        `json:"requester_id" gorm:"type:varchar(36);not null;index"`
	Requester   *User         `json:"-" gorm:"foreignKey:RequesterID"`
	Message     *string       `json:"message"`
	PickupTime  *time.Time    `json:"pickup_time"`
	Status      RequestStatus `json:"status" gorm:"not null;default:'pending';index"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (p *PickupRequest) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PickupRequestView embeds the donation (with donor for sent requests) and the requester
type PickupRequestView struct {
	PickupRequest
	DonationInfo  *DonationView `json:"donation,omitempty"`
	RequesterInfo *PublicUser   `json:"requester,omitempty"`
}

func (p PickupRequest) View() PickupRequestView {
	v := PickupRequestView{PickupRequest: p, RequesterInfo: p.Requester.Public()}
	if p.Donation != nil {
		dv := p.Donation.View()
		v.DonationInfo = &dv
	}
	return v
}

// StatusChange tracks every status change of a donation or pickup request
type StatusChange struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Entity     string    `json:"entity" gorm:"not null;index:idx_status_change_entity"`
	EntityID   string    `json:"entity_id" gorm:"type:varchar(36);not null;index:idx_status_change_entity"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status" gorm:"not null"`
	ChangedBy  string    `json:"changed_by"` // empty when the reconciler made the change
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	EntityDonation      = "donation"
	EntityPickupRequest = "pickup_request"
)
