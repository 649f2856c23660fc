package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for the hour ledger. Handlers match these with errors.Is
// and translate them into user-facing responses; none of them is a system
// fault, so nothing here is retried.
var (
	ErrInsufficientBalance = errors.New("insufficient hour balance")
	ErrPackageExpired      = errors.New("all purchased packages have expired")
	ErrInvalidDuration     = errors.New("session duration must be positive")
)

type InsufficientBalanceError struct {
	StudentID uuid.UUID
	Required  decimal.Decimal
	Available decimal.Decimal
	Detail    string
}

func (e *InsufficientBalanceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("insufficient balance for student %s: %s", e.StudentID, e.Detail)
	}
	return fmt.Sprintf("insufficient balance for student %s: required %s hours, available %s",
		e.StudentID, e.Required.String(), e.Available.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type PackageExpiredError struct {
	StudentID uuid.UUID
}

func (e *PackageExpiredError) Error() string {
	return fmt.Sprintf("student %s has purchased packages but none is still active", e.StudentID)
}

func (e *PackageExpiredError) Unwrap() error { return ErrPackageExpired }

type InvalidDurationError struct {
	Hours decimal.Decimal
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid session duration: %s hours", e.Hours.String())
}

func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }
