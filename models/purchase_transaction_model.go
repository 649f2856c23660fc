package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseTransaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	PackageID     uuid.UUID       `gorm:"not null;unique" json:"package_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3" json:"currency"`
	Provider      string          `gorm:"size:50;not null" json:"provider"`
	ReceiptNumber string          `gorm:"size:20;unique" json:"receipt_number"`

	ProviderIntentID *string `gorm:"size:255;unique" json:"provider_intent_id"`
	Status           string  `gorm:"size:20;not null;default:'pending'" json:"status"`

	Package HourPackage `gorm:"foreignkey:PackageID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
