package routes

import (
	"github.com/aprendecomigo-edu/aprendecomigo-backend/handlers"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func PackageRoutes(app *fiber.App) {
	api := app.Group("/api/v1")
	api.Get("/plans", handlers.ListActivePlans)

	studentPlans := api.Group("/plans", middleware.Protected())
	studentPlans.Post("/:planId/purchase", handlers.PurchasePlan)

	packages := api.Group("/packages", middleware.Protected())
	packages.Get("/me", handlers.GetMyPackages)

	balances := api.Group("/balances", middleware.Protected())
	balances.Get("/me", handlers.GetMyBalance)
	balances.Get("/me/history", handlers.GetMyConsumptionHistory)
	balances.Get("/me/eligibility", handlers.CheckBookingEligibility)

	adminPlans := api.Group("/admin/plans", middleware.Protected(), middleware.AdminRequired())
	adminPlans.Post("", handlers.CreatePlan)
	adminPlans.Put("/:planId", handlers.UpdatePlan)
	adminPlans.Put("/:planId/status", handlers.TogglePlanStatus)
}
