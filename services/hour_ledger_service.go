package services

import (
	"errors"
	"sort"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MinAdjustmentHours is the smallest duration difference worth billing.
// Anything below it is treated as "session ran as booked".
var MinAdjustmentHours = decimal.NewFromFloat(0.1)

// HourLedger owns all reads and writes against students' tutoring-hour
// balances: deduction at booking time, refunds on cancellation, and
// adjustments when a session's actual duration differs from the booked one.
type HourLedger struct {
	db *gorm.DB
}

func NewHourLedger(db *gorm.DB) *HourLedger {
	return &HourLedger{db: db}
}

type RefundSummary struct {
	RecordsRefunded int                           `json:"records_refunded"`
	HoursRefunded   decimal.Decimal               `json:"hours_refunded"`
	ByStudent       map[uuid.UUID]decimal.Decimal `json:"by_student"`
}

type EligibilityReport struct {
	CanBook            bool            `json:"can_book"`
	HoursRequired      decimal.Decimal `json:"hours_required"`
	HoursAvailable     decimal.Decimal `json:"hours_available"`
	RemainingAfter     decimal.Decimal `json:"remaining_after"`
	HasActivePackages  bool            `json:"has_active_packages"`
	ActivePackageCount int64           `json:"active_package_count"`
	Reason             string          `json:"reason,omitempty"`
}

type AdjustmentResult struct {
	Adjusted      bool                     `json:"adjusted"`
	ExtraCharged  decimal.Decimal          `json:"extra_charged"`
	HoursRefunded decimal.Decimal          `json:"hours_refunded"`
	Consumptions  []models.HourConsumption `json:"consumptions,omitempty"`
}

// ValidateAndDeduct charges every enrolled student for the session's booked
// duration. Trial sessions and sessions with no students are free. Every
// student is validated before any of them is charged, and the whole deduction
// runs in one transaction, so either all students pay or none do.
func (l *HourLedger) ValidateAndDeduct(session *models.ClassSession) ([]models.HourConsumption, error) {
	if session.IsTrial() || len(session.Students) == 0 {
		return nil, nil
	}
	if !session.DurationHours.IsPositive() {
		return nil, &InvalidDurationError{Hours: session.DurationHours}
	}
	return l.deduct(session, session.DurationHours, "")
}

// DeductAdditionalHours charges every enrolled student for extra time after a
// session ran longer than booked. A non-positive extra is nothing to charge,
// not an error.
func (l *HourLedger) DeductAdditionalHours(session *models.ClassSession, extraHours decimal.Decimal, reason string) ([]models.HourConsumption, error) {
	if !extraHours.IsPositive() {
		return nil, nil
	}
	if session.IsTrial() || len(session.Students) == 0 {
		return nil, nil
	}
	return l.deduct(session, extraHours, reason)
}

func (l *HourLedger) deduct(session *models.ClassSession, hours decimal.Decimal, reason string) ([]models.HourConsumption, error) {
	// Lock balances in student-id order so concurrent multi-student
	// deductions cannot deadlock on each other.
	students := make([]models.User, len(session.Students))
	copy(students, session.Students)
	sort.Slice(students, func(i, j int) bool {
		return students[i].ID.String() < students[j].ID.String()
	})

	var consumptions []models.HourConsumption
	err := l.db.Transaction(func(tx *gorm.DB) error {
		type charge struct {
			balance *models.AccountBalance
			pkg     *models.HourPackage
		}
		charges := make([]charge, 0, len(students))

		// Phase 1: validate every student before charging any of them.
		for i := range students {
			balance, err := l.lockBalance(tx, students[i].ID)
			if err != nil {
				return err
			}
			pkg, err := l.validateStudent(tx, balance, hours)
			if err != nil {
				return err
			}
			charges = append(charges, charge{balance: balance, pkg: pkg})
		}

		// Phase 2: charge.
		for _, ch := range charges {
			record := models.HourConsumption{
				BalanceID:               ch.balance.ID,
				SessionID:               session.ID,
				PackageID:               ch.pkg.ID,
				HoursConsumed:           hours,
				HoursOriginallyReserved: hours,
				Reason:                  reason,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}

			ch.balance.HoursConsumed = ch.balance.HoursConsumed.Add(hours)
			if err := tx.Save(ch.balance).Error; err != nil {
				return err
			}
			consumptions = append(consumptions, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumptions, nil
}

// RefundForCancellation returns every non-refunded hour billed against the
// session back to its owner's balance. A session with no consumption records
// is a successful no-op.
func (l *HourLedger) RefundForCancellation(session *models.ClassSession, reason string) (*RefundSummary, error) {
	summary := &RefundSummary{
		HoursRefunded: decimal.Zero,
		ByStudent:     make(map[uuid.UUID]decimal.Decimal),
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var records []models.HourConsumption
		if err := tx.Where("session_id = ? AND refunded = ?", session.ID, false).
			Order("created_at asc").
			Find(&records).Error; err != nil {
			return err
		}
		for i := range records {
			record := &records[i]

			var balance models.AccountBalance
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&balance, "id = ?", record.BalanceID).Error; err != nil {
				return err
			}
			balance.HoursConsumed = balance.HoursConsumed.Sub(record.HoursConsumed)
			if err := tx.Save(&balance).Error; err != nil {
				return err
			}

			record.Refunded = true
			record.Reason = reason
			if err := tx.Save(record).Error; err != nil {
				return err
			}

			summary.RecordsRefunded++
			summary.HoursRefunded = summary.HoursRefunded.Add(record.HoursConsumed)
			summary.ByStudent[balance.StudentID] = summary.ByStudent[balance.StudentID].Add(record.HoursConsumed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RefundExcessHours gives back overbilled time after a session ran shorter
// than booked. It walks the session's non-refunded consumption records oldest
// first, taking min(excess, record hours) from each until the excess is
// exhausted; a record drained to zero is marked refunded.
func (l *HourLedger) RefundExcessHours(session *models.ClassSession, excessHours decimal.Decimal, reason string) ([]models.HourConsumption, error) {
	if !excessHours.IsPositive() {
		return nil, nil
	}

	var updated []models.HourConsumption
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var records []models.HourConsumption
		if err := tx.Where("session_id = ? AND refunded = ?", session.ID, false).
			Order("created_at asc").
			Find(&records).Error; err != nil {
			return err
		}

		left := excessHours
		for i := range records {
			if !left.IsPositive() {
				break
			}
			record := &records[i]
			refund := decimal.Min(left, record.HoursConsumed)
			if !refund.IsPositive() {
				continue
			}

			var balance models.AccountBalance
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&balance, "id = ?", record.BalanceID).Error; err != nil {
				return err
			}
			balance.HoursConsumed = balance.HoursConsumed.Sub(refund)
			if err := tx.Save(&balance).Error; err != nil {
				return err
			}

			record.HoursConsumed = record.HoursConsumed.Sub(refund)
			record.Reason = reason
			if record.HoursConsumed.IsZero() {
				record.Refunded = true
			}
			if err := tx.Save(record).Error; err != nil {
				return err
			}

			left = left.Sub(refund)
			updated = append(updated, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReconcileActualDuration settles the difference between a session's booked
// and actual duration. Differences under MinAdjustmentHours are ignored.
func (l *HourLedger) ReconcileActualDuration(session *models.ClassSession, actualHours decimal.Decimal, reason string) (*AdjustmentResult, error) {
	result := &AdjustmentResult{
		ExtraCharged:  decimal.Zero,
		HoursRefunded: decimal.Zero,
	}
	if session.IsTrial() {
		return result, nil
	}

	diff := actualHours.Sub(session.DurationHours)
	if diff.Abs().LessThan(MinAdjustmentHours) {
		return result, nil
	}

	if diff.IsPositive() {
		consumptions, err := l.DeductAdditionalHours(session, diff, reason)
		if err != nil {
			return nil, err
		}
		result.Adjusted = true
		result.ExtraCharged = diff
		result.Consumptions = consumptions
		return result, nil
	}

	consumptions, err := l.RefundExcessHours(session, diff.Neg(), reason)
	if err != nil {
		return nil, err
	}
	result.Adjusted = true
	result.HoursRefunded = diff.Neg()
	result.Consumptions = consumptions
	return result, nil
}

// CheckBookingEligibility is the advisory read path behind the booking UI's
// pre-flight check. It never returns an error: anything that goes wrong
// internally comes back as an ineligible report with the failure as reason.
func (l *HourLedger) CheckBookingEligibility(studentID uuid.UUID, durationHours decimal.Decimal) *EligibilityReport {
	report := &EligibilityReport{
		HoursRequired:  durationHours,
		HoursAvailable: decimal.Zero,
		RemainingAfter: decimal.Zero,
	}

	var balance models.AccountBalance
	if err := l.db.Where("student_id = ?", studentID).First(&balance).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			report.Reason = "could not load balance: " + err.Error()
			return report
		}
		// No balance row yet simply means nothing purchased.
	}
	available := balance.RemainingHours()

	var activeCount int64
	if err := l.db.Model(&models.HourPackage{}).
		Where("student_id = ? AND status = ?", studentID, models.PackageStatusCompleted).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&activeCount).Error; err != nil {
		report.Reason = "could not load packages: " + err.Error()
		return report
	}

	report.HoursAvailable = available
	report.ActivePackageCount = activeCount
	report.HasActivePackages = activeCount > 0

	switch {
	case activeCount == 0:
		report.Reason = "no active packages"
	case available.LessThan(durationHours):
		report.Reason = "insufficient hours"
	default:
		report.CanBook = true
		report.RemainingAfter = available.Sub(durationHours)
	}
	return report
}

// CreditPurchase records a completed package purchase on the student's
// balance. It runs inside the caller's transaction so the package status
// flip and the balance credit commit together.
func (l *HourLedger) CreditPurchase(tx *gorm.DB, pkg *models.HourPackage, amount decimal.Decimal) error {
	balance, err := l.lockBalance(tx, pkg.StudentID)
	if err != nil {
		return err
	}
	balance.HoursPurchased = balance.HoursPurchased.Add(pkg.HoursIncluded)
	balance.BalanceAmount = balance.BalanceAmount.Add(amount)
	return tx.Save(balance).Error
}

// lockBalance fetches the student's balance row under FOR UPDATE, creating it
// lazily on first use. The unique index on student_id turns a concurrent
// first insert into a conflict, in which case the row now exists and the
// locked read is retried.
func (l *HourLedger) lockBalance(tx *gorm.DB, studentID uuid.UUID) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	balance = models.AccountBalance{
		StudentID:      studentID,
		HoursPurchased: decimal.Zero,
		HoursConsumed:  decimal.Zero,
		BalanceAmount:  decimal.Zero,
	}
	if createErr := tx.Create(&balance).Error; createErr != nil {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ?", studentID).
			First(&balance).Error; err != nil {
			return nil, createErr
		}
	}
	return &balance, nil
}

// validateStudent enforces the pre-deduction rules: enough remaining hours,
// and at least one completed, non-expired package to draw from. It returns
// the oldest eligible package (FIFO consumption).
func (l *HourLedger) validateStudent(tx *gorm.DB, balance *models.AccountBalance, required decimal.Decimal) (*models.HourPackage, error) {
	remaining := balance.RemainingHours()
	if remaining.LessThan(required) {
		return nil, &InsufficientBalanceError{
			StudentID: balance.StudentID,
			Required:  required,
			Available: remaining,
		}
	}

	var pkg models.HourPackage
	err := tx.Where("student_id = ? AND status = ?", balance.StudentID, models.PackageStatusCompleted).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at asc").
		First(&pkg).Error
	if err == nil {
		return &pkg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var completed int64
	if err := tx.Model(&models.HourPackage{}).
		Where("student_id = ? AND status = ?", balance.StudentID, models.PackageStatusCompleted).
		Count(&completed).Error; err != nil {
		return nil, err
	}
	if completed > 0 {
		return nil, &PackageExpiredError{StudentID: balance.StudentID}
	}
	return nil, &InsufficientBalanceError{
		StudentID: balance.StudentID,
		Required:  required,
		Available: remaining,
		Detail:    "no packages purchased",
	}
}
