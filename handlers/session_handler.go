package handlers

import (
	"errors"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/notifications"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookSessionRequest struct {
	TeacherID      string   `json:"teacher_id" validate:"required,uuid"`
	ScheduledStart string   `json:"scheduled_start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationHours  float64  `json:"duration_hours" validate:"required"`
	SessionType    string   `json:"session_type" validate:"required,oneof=individual group trial"`
	StudentIDs     []string `json:"student_ids,omitempty" validate:"omitempty,dive,uuid"`
}

func currentRole(c *fiber.Ctx) string {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	return claims["role"].(string)
}

// BookSession creates a session and charges every enrolled student through
// the hour ledger. Students book individual/trial sessions for themselves;
// group sessions with an explicit student list are an admin operation.
func BookSession(c *fiber.Ctx) error {
	callerID := currentUserID(c)
	role := currentRole(c)

	var req BookSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	teacherID, _ := uuid.Parse(req.TeacherID)
	var teacher models.User
	if err := database.DB.First(&teacher, "id = ? AND role = ?", teacherID, "teacher").Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	var students []models.User
	if req.SessionType == models.SessionTypeGroup {
		if role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only admins can book group sessions"})
		}
		if len(req.StudentIDs) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Group sessions require a student list"})
		}
		for _, raw := range req.StudentIDs {
			id, _ := uuid.Parse(raw)
			var student models.User
			if err := database.DB.First(&student, "id = ? AND role = ?", id, "student").Error; err != nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found: " + raw})
			}
			students = append(students, student)
		}
	} else {
		var student models.User
		if err := database.DB.First(&student, "id = ?", callerID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
		}
		students = append(students, student)
	}

	start, _ := time.Parse(time.RFC3339, req.ScheduledStart)
	if start.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session start cannot be in the past"})
	}

	duration := decimal.NewFromFloat(req.DurationHours)
	session := models.ClassSession{
		TeacherID:      teacher.ID,
		SessionType:    req.SessionType,
		Status:         models.SessionStatusConfirmed,
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Duration(req.DurationHours * float64(time.Hour))),
		DurationHours:  duration,
		Students:       students,
	}

	// The session row and the hour deduction commit together, so a failed
	// charge never leaves a confirmed session behind.
	var consumptions []models.HourConsumption
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		var err error
		consumptions, err = services.NewHourLedger(tx).ValidateAndDeduct(&session)
		return err
	})
	if err != nil {
		return c.Status(ledgerErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	go func() {
		for _, s := range students {
			notifications.SendEmail(s.FullName, s.Email, "Your Session is Confirmed!", "<h1>Session Confirmed</h1><p>Your tutoring session has been booked and the hours reserved from your package.</p>")
		}
		notifications.SendEmail(teacher.FullName, teacher.Email, "You Have a New Session!", "<h1>New Session</h1><p>A new tutoring session has been booked with you.</p>")
	}()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session":      session,
		"consumptions": consumptions,
	})
}

type CancelSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func CancelSession(c *fiber.Ctx) error {
	callerID := currentUserID(c)
	role := currentRole(c)
	sessionID := c.Params("sessionId")

	// The body is optional; an empty reason falls back to the default.
	var req CancelSessionRequest
	_ = c.BodyParser(&req)
	if req.Reason == "" {
		req.Reason = "session cancelled"
	}

	var session models.ClassSession
	if err := database.DB.Preload("Students").First(&session, "id = ?", sessionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	if !canManageSession(&session, callerID, role) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your session"})
	}
	if session.Status != models.SessionStatusConfirmed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only confirmed sessions can be cancelled"})
	}

	// The status flip and the refund commit together. If the refund fails the
	// session stays confirmed and can be cancelled again.
	var summary *services.RefundSummary
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&session).Update("status", models.SessionStatusCancelled).Error; err != nil {
			return err
		}
		var err error
		summary, err = services.NewHourLedger(tx).RefundForCancellation(&session, req.Reason)
		return err
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel session"})
	}

	go func() {
		for _, s := range session.Students {
			notifications.SendEmail(s.FullName, s.Email, "Session Cancelled", "<h1>Session Cancelled</h1><p>Your session was cancelled and the reserved hours were returned to your balance.</p>")
		}
	}()

	return c.JSON(fiber.Map{
		"message": "Session cancelled and hours refunded.",
		"refund":  summary,
	})
}

type CompleteSessionRequest struct {
	ActualDurationHours float64 `json:"actual_duration_hours" validate:"required,gt=0"`
}

// CompleteSession marks a session as done and reconciles the actual duration
// against the booked one. Differences under 0.1 hours are ignored.
func CompleteSession(c *fiber.Ctx) error {
	teacherID := currentUserID(c)
	sessionID := c.Params("sessionId")

	var req CompleteSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var session models.ClassSession
	if err := database.DB.Preload("Students").First(&session, "id = ?", sessionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	if session.TeacherID != teacherID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not the teacher for this session"})
	}
	if session.Status != models.SessionStatusConfirmed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only confirmed sessions can be marked as complete"})
	}
	if session.ScheduledEnd.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot mark a session as complete before it has ended"})
	}

	actual := decimal.NewFromFloat(req.ActualDurationHours)

	// Reconciliation and the status flip commit together, so a failed save
	// cannot leave the adjustment applied to a still-confirmed session.
	var adjustment *services.AdjustmentResult
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		adjustment, err = services.NewHourLedger(tx).ReconcileActualDuration(&session, actual, "duration adjustment after completion")
		if err != nil {
			return err
		}
		return tx.Model(&session).Updates(map[string]interface{}{
			"status":                models.SessionStatusCompleted,
			"actual_duration_hours": actual,
		}).Error
	})
	if err != nil {
		return c.Status(ledgerErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	session.Status = models.SessionStatusCompleted
	session.ActualDurationHours = &actual

	return c.JSON(fiber.Map{
		"message":    "Session marked as complete.",
		"adjustment": adjustment,
	})
}

func GetMySessions(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	var sessions []models.ClassSession
	database.DB.
		Preload("Students").
		Joins("JOIN session_students ON session_students.class_session_id = class_sessions.id").
		Where("session_students.user_id = ?", studentID).
		Order("class_sessions.scheduled_start desc").
		Find(&sessions)

	return c.JSON(sessions)
}

func GetMyTeacherSessions(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	var sessions []models.ClassSession
	database.DB.
		Preload("Students").
		Where("teacher_id = ?", teacherID).
		Order("scheduled_start desc").
		Find(&sessions)

	return c.JSON(sessions)
}

func canManageSession(session *models.ClassSession, callerID uuid.UUID, role string) bool {
	if role == "admin" || session.TeacherID == callerID {
		return true
	}
	for _, s := range session.Students {
		if s.ID == callerID {
			return true
		}
	}
	return false
}

func ledgerErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrPackageExpired),
		errors.Is(err, services.ErrInvalidDuration):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
