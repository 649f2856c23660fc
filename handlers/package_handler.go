package handlers

import (
	"log"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/payments"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PlanRequest struct {
	Name          string  `json:"name" validate:"required"`
	HoursIncluded float64 `json:"hours_included" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	Currency      string  `json:"currency,omitempty"`
	ValidityDays  int     `json:"validity_days" validate:"gte=0"`
}

func CreatePlan(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	plan := models.PackagePlan{
		Name:          req.Name,
		HoursIncluded: decimal.NewFromFloat(req.HoursIncluded),
		Price:         decimal.NewFromFloat(req.Price),
		ValidityDays:  req.ValidityDays,
	}
	if req.Currency != "" {
		plan.Currency = req.Currency
	}

	if err := database.DB.Create(&plan).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create plan"})
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func UpdatePlan(c *fiber.Ctx) error {
	planID := c.Params("planId")
	var plan models.PackagePlan
	if err := database.DB.First(&plan, "id = ?", planID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Plan not found"})
	}

	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	plan.Name = req.Name
	plan.HoursIncluded = decimal.NewFromFloat(req.HoursIncluded)
	plan.Price = decimal.NewFromFloat(req.Price)
	plan.ValidityDays = req.ValidityDays
	if req.Currency != "" {
		plan.Currency = req.Currency
	}
	database.DB.Save(&plan)

	return c.JSON(plan)
}

func TogglePlanStatus(c *fiber.Ctx) error {
	planID := c.Params("planId")
	type Request struct {
		IsActive bool `json:"is_active"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	result := database.DB.Model(&models.PackagePlan{}).Where("id = ?", planID).Update("is_active", req.IsActive)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update plan status"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Plan not found"})
	}

	return c.JSON(fiber.Map{"message": "Plan status updated successfully."})
}

func ListActivePlans(c *fiber.Ctx) error {
	var plans []models.PackagePlan
	database.DB.Where("is_active = ?", true).Order("price asc").Find(&plans)
	return c.JSON(plans)
}

// PurchasePlan creates a pending package plus its purchase transaction and
// opens a Stripe payment intent. The package only becomes consumable once the
// gateway webhook confirms the payment.
func PurchasePlan(c *fiber.Ctx) error {
	studentID := currentUserID(c)
	planID, err := uuid.Parse(c.Params("planId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid plan ID format"})
	}

	var plan models.PackagePlan
	if err := database.DB.First(&plan, "id = ? AND is_active = ?", planID, true).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Active plan not found"})
	}

	var pkg models.HourPackage
	var txn models.PurchaseTransaction

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		pkg = models.HourPackage{
			StudentID:     studentID,
			PlanID:        plan.ID,
			HoursIncluded: plan.HoursIncluded,
			Status:        models.PackageStatusPending,
		}
		if err := tx.Create(&pkg).Error; err != nil {
			return err
		}

		receipt, err := utils.GenerateUniqueReceiptNumber(tx)
		if err != nil {
			return err
		}

		txn = models.PurchaseTransaction{
			PackageID:     pkg.ID,
			Amount:        plan.Price,
			Currency:      plan.Currency,
			Provider:      "stripe",
			ReceiptNumber: receipt,
			Status:        "pending",
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create purchase records"})
	}

	intent, err := payments.CreatePaymentIntent(txn.Amount, txn.Currency, txn.ID.String())
	if err != nil {
		log.Printf("🔥 CRITICAL: CreatePaymentIntent failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Payment could not be initiated, please try again."})
	}

	txn.ProviderIntentID = &intent.ID
	database.DB.Save(&txn)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"package":       pkg,
		"transaction":   txn,
		"client_secret": intent.ClientSecret,
	})
}

func GetMyPackages(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	var packages []models.HourPackage
	database.DB.
		Preload("Plan").
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Find(&packages)

	return c.JSON(packages)
}
