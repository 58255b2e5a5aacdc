package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feedback struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    *string   `json:"user_id" gorm:"type:varchar(36);index"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	Subject   *string   `json:"subject"`
	Message   string    `json:"message" gorm:"not null"`
	Rating    *int      `json:"rating"`
	Category  string    `json:"category" gorm:"not null;default:'general'"`
	Status    string    `json:"status" gorm:"not null;default:'open'"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
