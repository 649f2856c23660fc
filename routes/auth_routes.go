package routes

import (
	"github.com/aprendecomigo-edu/aprendecomigo-backend/handlers"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")
	api.Post("/auth/register", handlers.RegisterUser)
	api.Post("/auth/login", handlers.LoginUser)

	me := api.Group("/me", middleware.Protected())
	me.Get("", handlers.GetMe)
}
