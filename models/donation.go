package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DonationStatus represents all possible states of a food donation
type DonationStatus string

const (
	DonationAvailable DonationStatus = "available"
	DonationReserved  DonationStatus = "reserved"
	DonationPickedUp  DonationStatus = "picked_up"
)

func (s DonationStatus) Valid() bool {
	switch s {
	case DonationAvailable, DonationReserved, DonationPickedUp:
		return true
	}
	return false
}

type FoodType string

const (
	FoodVeg       FoodType = "veg"
	FoodNonVeg    FoodType = "non-veg"
	FoodPackaged  FoodType = "packaged"
	FoodCooked    FoodType = "cooked"
	FoodFruits    FoodType = "fruits"
	FoodDairy     FoodType = "dairy"
	FoodBeverages FoodType = "beverages"
	FoodOther     FoodType = "other"
)

var FoodTypes = []FoodType{FoodVeg, FoodNonVeg, FoodPackaged, FoodCooked, FoodFruits, FoodDairy, FoodBeverages, FoodOther}

func (f FoodType) Valid() bool {
	for _, t := range FoodTypes {
		if f == t {
			return true
		}
	}
	return false
}

// DonorContact is captured at creation time and never follows the live user record
type DonorContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Donation struct {
	ID              string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	DonorID         string         `json:"donor_id" gorm:"type:varchar(36);not null;index"`
	Donor           *User          `json:"-" gorm:"foreignKey:DonorID"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description"`
	FoodType        FoodType       `json:"food_type" gorm:"not null;index"`
	Quantity        string         `json:"quantity" gorm:"not null"`
	ExpiryDate      time.Time      `json:"expiry_date" gorm:"not null"`
	PickupLocation  string         `json:"pickup_location" gorm:"not null"`
	ImageURL        *string        `json:"image_url"`
	Status          DonationStatus `json:"status" gorm:"not null;default:'available';index"`
	DonorContact    DonorContact   `json:"donor_contact" gorm:"embedded;embeddedPrefix:contact_"`
	AdditionalNotes string         `json:"additional_notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// DonationView is a donation with its donor snapshot for display
type DonationView struct {
	Donation
	DonorInfo *PublicUser `json:"donor,omitempty"`
}

func (d Donation) View() DonationView {
	return DonationView{Donation: d, DonorInfo: d.Donor.Public()}
}
