package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PackageStatusPending   = "pending"
	PackageStatusCompleted = "completed"
	PackageStatusFailed    = "failed"
)

type HourPackage struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	StudentID     uuid.UUID       `gorm:"not null;index" json:"student_id"`
	PlanID        uuid.UUID       `gorm:"not null" json:"plan_id"`
	HoursIncluded decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"hours_included"`
	Status        string          `gorm:"size:20;not null;default:'pending'" json:"status"`

	// Null expiry means the package never expires.
	ExpiresAt *time.Time `json:"expires_at"`

	Student User        `gorm:"foreignkey:StudentID" json:"-"`
	Plan    PackagePlan `gorm:"foreignkey:PlanID" json:"plan"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
