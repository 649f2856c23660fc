package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.PackagePlan{},
		&models.HourPackage{},
		&models.PurchaseTransaction{},
		&models.AccountBalance{},
		&models.ClassSession{},
		&models.HourConsumption{},
	))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	return fiber.New()
}

// asUser stands in for the jwt middleware, planting the parsed token the
// handlers read their identity from.
func asUser(userID uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": userID.String(),
			"role":    role,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		c.Locals("user", token)
		return c.Next()
	}
}

func seedStudent(t *testing.T, hours float64) models.User {
	t.Helper()

	student := models.User{
		FullName: "Balance Student",
		Email:    fmt.Sprintf("%s@example.com", strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))),
		Password: "not-a-real-hash",
		Role:     "student",
	}
	require.NoError(t, database.DB.Create(&student).Error)

	if hours <= 0 {
		return student
	}

	plan := models.PackagePlan{
		Name:          "test pack",
		HoursIncluded: decimal.NewFromFloat(hours),
		Price:         decimal.NewFromFloat(hours * 12.5),
	}
	require.NoError(t, database.DB.Create(&plan).Error)

	pkg := models.HourPackage{
		StudentID:     student.ID,
		PlanID:        plan.ID,
		HoursIncluded: decimal.NewFromFloat(hours),
		Status:        models.PackageStatusCompleted,
	}
	require.NoError(t, database.DB.Create(&pkg).Error)

	ledger := services.NewHourLedger(database.DB)
	require.NoError(t, database.DB.Transaction(func(tx *gorm.DB) error {
		return ledger.CreditPurchase(tx, &pkg, plan.Price)
	}))
	return student
}

func TestGetMyBalanceEmpty(t *testing.T) {
	app := setupTestApp(t)
	student := seedStudent(t, 0)

	app.Get("/balances/me", asUser(student.ID, "student"), GetMyBalance)

	resp, err := app.Test(httptest.NewRequest("GET", "/balances/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "0", body["hours_remaining"])
	assert.Equal(t, "0", body["hours_purchased"])
}

func TestGetMyBalanceWithPurchase(t *testing.T) {
	app := setupTestApp(t)
	student := seedStudent(t, 10)

	app.Get("/balances/me", asUser(student.ID, "student"), GetMyBalance)

	resp, err := app.Test(httptest.NewRequest("GET", "/balances/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "10", body["hours_purchased"])
	assert.Equal(t, "0", body["hours_consumed"])
	assert.Equal(t, "10", body["hours_remaining"])
	assert.Equal(t, student.ID.String(), body["student_id"])
}

func TestCheckBookingEligibilityEndpoint(t *testing.T) {
	app := setupTestApp(t)
	student := seedStudent(t, 3)

	app.Get("/balances/me/eligibility", asUser(student.ID, "student"), CheckBookingEligibility)

	resp, err := app.Test(httptest.NewRequest("GET", "/balances/me/eligibility?duration_hours=2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report services.EligibilityReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, report.CanBook)
	assert.Equal(t, "3", report.HoursAvailable.String())
	assert.Equal(t, "1", report.RemainingAfter.String())

	// More hours than purchased: still 200, just not bookable.
	resp, err = app.Test(httptest.NewRequest("GET", "/balances/me/eligibility?duration_hours=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.False(t, report.CanBook)
	assert.Equal(t, "insufficient hours", report.Reason)
}

func TestCheckBookingEligibilityRejectsBadDuration(t *testing.T) {
	app := setupTestApp(t)
	student := seedStudent(t, 3)

	app.Get("/balances/me/eligibility", asUser(student.ID, "student"), CheckBookingEligibility)

	for _, q := range []string{"0", "-1", "abc"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/balances/me/eligibility?duration_hours="+q, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}
