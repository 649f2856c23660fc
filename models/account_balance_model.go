package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountBalance struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	StudentID      uuid.UUID       `gorm:"not null;uniqueIndex" json:"student_id"`
	HoursPurchased decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0" json:"hours_purchased"`
	HoursConsumed  decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0" json:"hours_consumed"`
	BalanceAmount  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"balance_amount"`

	Student User `gorm:"foreignkey:StudentID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b AccountBalance) RemainingHours() decimal.Decimal {
	return b.HoursPurchased.Sub(b.HoursConsumed)
}
