package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type HourConsumption struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BalanceID uuid.UUID `gorm:"not null;index" json:"balance_id"`
	SessionID uuid.UUID `gorm:"not null;index" json:"session_id"`
	PackageID uuid.UUID `gorm:"not null" json:"package_id"`

	HoursConsumed           decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"hours_consumed"`
	HoursOriginallyReserved decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"hours_originally_reserved"`

	// Refunds are soft: the record stays, hours go back to the balance.
	// Reason carries either the refund reason or, for extra-hour charges,
	// the adjustment reason.
	Refunded bool   `gorm:"not null;default:false" json:"refunded"`
	Reason   string `gorm:"type:text" json:"reason"`

	Balance AccountBalance `gorm:"foreignkey:BalanceID" json:"-"`
	Session ClassSession   `gorm:"foreignkey:SessionID" json:"-"`
	Package HourPackage    `gorm:"foreignkey:PackageID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
