package handlers

import (
	"log"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/notifications"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/payments"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StripeWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Metadata struct {
				PurchaseRef string `json:"purchase_ref"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleStripeWebhook settles a purchase transaction: on success it marks the
// package completed, stamps its expiry from the plan's validity, and credits
// the student's balance, all in one transaction.
func HandleStripeWebhook(c *fiber.Ctx) error {
	var payload StripeWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}

	intent := payload.Data.Object
	log.Printf("Received webhook %s for intent %s (purchase_ref: %s)", payload.Type, intent.ID, intent.Metadata.PurchaseRef)

	var txn models.PurchaseTransaction
	query := database.DB.Where("provider_intent_id = ?", intent.ID)
	if intent.Metadata.PurchaseRef != "" {
		query = database.DB.Where("id = ?", intent.Metadata.PurchaseRef)
	}
	if err := query.First(&txn).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Purchase transaction not found"})
	}

	if txn.Status == "succeeded" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook already processed"})
	}

	if payload.Type == "payment_intent.payment_failed" {
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			txn.Status = "failed"
			if err := tx.Save(&txn).Error; err != nil {
				return err
			}
			return tx.Model(&models.HourPackage{}).
				Where("id = ?", txn.PackageID).
				Update("status", models.PackageStatusFailed).Error
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record failed payment"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged failed payment"})
	}

	if payload.Type != "payment_intent.succeeded" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Event ignored"})
	}

	// Webhook payloads are not signed here, so the gateway is asked directly
	// before any hours are credited.
	verified, err := payments.GetPaymentIntent(intent.ID)
	if err != nil {
		log.Printf("Could not verify intent %s with Stripe: %v", intent.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Could not verify payment intent"})
	}
	if verified.Status != "succeeded" {
		log.Printf("Intent %s reported as succeeded but gateway says %q, ignoring event", intent.ID, verified.Status)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Event ignored"})
	}

	ledger := services.NewHourLedger(database.DB)
	var pkg models.HourPackage

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		txn.Status = "succeeded"
		if txn.ProviderIntentID == nil {
			txn.ProviderIntentID = &intent.ID
		}
		if err := tx.Save(&txn).Error; err != nil {
			return err
		}

		if err := tx.Preload("Plan").Preload("Student").First(&pkg, "id = ?", txn.PackageID).Error; err != nil {
			return err
		}

		pkg.Status = models.PackageStatusCompleted
		if pkg.Plan.ValidityDays > 0 {
			expiry := time.Now().AddDate(0, 0, pkg.Plan.ValidityDays)
			pkg.ExpiresAt = &expiry
		}
		if err := tx.Save(&pkg).Error; err != nil {
			return err
		}

		return ledger.CreditPurchase(tx, &pkg, txn.Amount)
	})
	if err != nil {
		log.Printf("🔥 CRITICAL: Error processing successful webhook for transaction %s: %v", txn.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}

	go notifications.SendEmail(pkg.Student.FullName, pkg.Student.Email, "Package Purchase Confirmed!", "<h1>Success!</h1><p>Your hour package is now active. You can use your hours to book tutoring sessions.</p>")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook processed successfully"})
}
