package routes

import (
	"github.com/aprendecomigo-edu/aprendecomigo-backend/handlers"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func SessionRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	sessions := api.Group("/sessions", middleware.Protected())
	sessions.Get("/me", handlers.GetMySessions)
	sessions.Post("", handlers.BookSession)
	sessions.Post("/:sessionId/cancel", handlers.CancelSession)

	teacherSessions := api.Group("/teacher/sessions", middleware.Protected(), middleware.TeacherRequired())
	teacherSessions.Get("/me", handlers.GetMyTeacherSessions)
	teacherSessions.Post("/:sessionId/complete", handlers.CompleteSession)
}
