package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SessionTypeIndividual = "individual"
	SessionTypeGroup      = "group"
	SessionTypeTrial      = "trial"
)

const (
	SessionStatusConfirmed = "confirmed"
	SessionStatusCancelled = "cancelled"
	SessionStatusCompleted = "completed"
)

type ClassSession struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID   uuid.UUID `gorm:"not null" json:"teacher_id"`
	SessionType string    `gorm:"size:20;not null;default:'individual'" json:"session_type"`
	Status      string    `gorm:"size:20;not null;default:'confirmed'" json:"status"`

	ScheduledStart time.Time       `gorm:"not null" json:"scheduled_start"`
	ScheduledEnd   time.Time       `gorm:"not null" json:"scheduled_end"`
	DurationHours  decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"duration_hours"`

	ActualDurationHours *decimal.Decimal `gorm:"type:numeric(5,2)" json:"actual_duration_hours"`

	Teacher  User   `gorm:"foreignkey:TeacherID" json:"-"`
	Students []User `gorm:"many2many:session_students;" json:"students,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *ClassSession) IsTrial() bool {
	return s.SessionType == SessionTypeTrial
}
