package handlers

import (
	"errors"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func GetMyBalance(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	var balance models.AccountBalance
	err := database.DB.Where("student_id = ?", studentID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing purchased yet; report an empty balance rather than 404.
			return c.JSON(fiber.Map{
				"student_id":      studentID,
				"hours_purchased": decimal.Zero,
				"hours_consumed":  decimal.Zero,
				"hours_remaining": decimal.Zero,
				"balance_amount":  decimal.Zero,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load balance"})
	}

	return c.JSON(fiber.Map{
		"student_id":      balance.StudentID,
		"hours_purchased": balance.HoursPurchased,
		"hours_consumed":  balance.HoursConsumed,
		"hours_remaining": balance.RemainingHours(),
		"balance_amount":  balance.BalanceAmount,
	})
}

func GetMyConsumptionHistory(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	var records []models.HourConsumption
	database.DB.
		Joins("JOIN account_balances ON account_balances.id = hour_consumptions.balance_id").
		Where("account_balances.student_id = ?", studentID).
		Order("hour_consumptions.created_at desc").
		Find(&records)

	return c.JSON(records)
}

// CheckBookingEligibility backs the booking screen's pre-flight check.
// It always answers 200 with an eligibility report, never an error status.
func CheckBookingEligibility(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	duration, err := decimal.NewFromString(c.Query("duration_hours", "1"))
	if err != nil || !duration.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "duration_hours must be a positive decimal"})
	}

	ledger := services.NewHourLedger(database.DB)
	return c.JSON(ledger.CheckBookingEligibility(studentID, duration))
}
