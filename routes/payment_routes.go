package routes

import (
	"github.com/aprendecomigo-edu/aprendecomigo-backend/handlers"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// The gateway calls this; it is authenticated by the payment reference,
	// not by a user JWT.
	api.Post("/payments/stripe/webhook", handlers.HandleStripeWebhook)
}
