package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

type Recipe struct {
	ID                  string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID              string       `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Title               string       `json:"title" gorm:"not null"`
	Description         string       `json:"description"`
	Ingredients         []Ingredient `json:"ingredients" gorm:"serializer:json"`
	Instructions        []string     `json:"instructions" gorm:"serializer:json"`
	PrepTime            string       `json:"prep_time"`
	Servings            int          `json:"servings"`
	Difficulty          string       `json:"difficulty"`
	DietaryRestrictions []string     `json:"dietary_restrictions" gorm:"serializer:json"`
	Tips                string       `json:"tips"`
	CreatedAt           time.Time    `json:"created_at"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
