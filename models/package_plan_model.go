package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PackagePlan struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	HoursIncluded decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"hours_included"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Currency      string          `gorm:"size:3;default:'EUR'" json:"currency"`

	// 0 means the package never expires (subscription plans).
	ValidityDays int  `gorm:"not null;default:0" json:"validity_days"`
	IsActive     bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
