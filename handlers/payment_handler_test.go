package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubStripe stands in for the gateway's payment-intent endpoint, answering
// every lookup with the given intent status.
func stubStripe(t *testing.T, intentStatus string, httpStatus int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpStatus != http.StatusOK {
			w.WriteHeader(httpStatus)
			return
		}
		parts := strings.Split(r.URL.Path, "/")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     parts[len(parts)-1],
			"status": intentStatus,
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("STRIPE_API_BASE_URL", srv.URL)
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_stub")
}

func seedPendingPurchase(t *testing.T, student models.User, hours float64, validityDays int) (models.HourPackage, models.PurchaseTransaction) {
	t.Helper()

	plan := models.PackagePlan{
		Name:          "webhook pack",
		HoursIncluded: decimal.NewFromFloat(hours),
		Price:         decimal.NewFromFloat(hours * 12.5),
		ValidityDays:  validityDays,
	}
	require.NoError(t, database.DB.Create(&plan).Error)

	pkg := models.HourPackage{
		StudentID:     student.ID,
		PlanID:        plan.ID,
		HoursIncluded: plan.HoursIncluded,
		Status:        models.PackageStatusPending,
	}
	require.NoError(t, database.DB.Create(&pkg).Error)

	txn := models.PurchaseTransaction{
		PackageID:     pkg.ID,
		Amount:        plan.Price,
		Currency:      "EUR",
		Provider:      "stripe",
		ReceiptNumber: fmt.Sprintf("RC-%08d", len(t.Name())),
		Status:        "pending",
	}
	require.NoError(t, database.DB.Create(&txn).Error)
	return pkg, txn
}

func webhookBody(eventType, intentID, purchaseRef string) *strings.Reader {
	return strings.NewReader(fmt.Sprintf(
		`{"type":%q,"data":{"object":{"id":%q,"status":"","metadata":{"purchase_ref":%q}}}}`,
		eventType, intentID, purchaseRef,
	))
}

func postWebhook(t *testing.T, app *fiber.App, body *strings.Reader) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", "/payments/stripe/webhook", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestStripeWebhookCreditsVerifiedPurchase(t *testing.T) {
	app := setupTestApp(t)
	stubStripe(t, "succeeded", http.StatusOK)
	student := seedStudent(t, 0)
	pkg, txn := seedPendingPurchase(t, student, 10, 30)

	app.Post("/payments/stripe/webhook", HandleStripeWebhook)

	resp := postWebhook(t, app, webhookBody("payment_intent.succeeded", "pi_test_1", txn.ID.String()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloadedTxn models.PurchaseTransaction
	require.NoError(t, database.DB.First(&reloadedTxn, "id = ?", txn.ID).Error)
	assert.Equal(t, "succeeded", reloadedTxn.Status)

	var reloadedPkg models.HourPackage
	require.NoError(t, database.DB.First(&reloadedPkg, "id = ?", pkg.ID).Error)
	assert.Equal(t, models.PackageStatusCompleted, reloadedPkg.Status)
	require.NotNil(t, reloadedPkg.ExpiresAt)

	var balance models.AccountBalance
	require.NoError(t, database.DB.Where("student_id = ?", student.ID).First(&balance).Error)
	assert.Equal(t, "10", balance.HoursPurchased.String())
}

func TestStripeWebhookIgnoresUnverifiedIntent(t *testing.T) {
	app := setupTestApp(t)
	stubStripe(t, "requires_payment_method", http.StatusOK)
	student := seedStudent(t, 0)
	pkg, txn := seedPendingPurchase(t, student, 10, 30)

	app.Post("/payments/stripe/webhook", HandleStripeWebhook)

	// The event claims success but the gateway disagrees: no hours credited.
	resp := postWebhook(t, app, webhookBody("payment_intent.succeeded", "pi_test_2", txn.ID.String()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloadedPkg models.HourPackage
	require.NoError(t, database.DB.First(&reloadedPkg, "id = ?", pkg.ID).Error)
	assert.Equal(t, models.PackageStatusPending, reloadedPkg.Status)

	var balance models.AccountBalance
	err := database.DB.Where("student_id = ?", student.ID).First(&balance).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStripeWebhookVerificationFailure(t *testing.T) {
	app := setupTestApp(t)
	stubStripe(t, "", http.StatusInternalServerError)
	student := seedStudent(t, 0)
	pkg, txn := seedPendingPurchase(t, student, 10, 30)

	app.Post("/payments/stripe/webhook", HandleStripeWebhook)

	resp := postWebhook(t, app, webhookBody("payment_intent.succeeded", "pi_test_3", txn.ID.String()))
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var reloadedPkg models.HourPackage
	require.NoError(t, database.DB.First(&reloadedPkg, "id = ?", pkg.ID).Error)
	assert.Equal(t, models.PackageStatusPending, reloadedPkg.Status)
}

func TestStripeWebhookFailedPayment(t *testing.T) {
	app := setupTestApp(t)
	student := seedStudent(t, 0)
	pkg, txn := seedPendingPurchase(t, student, 10, 30)

	app.Post("/payments/stripe/webhook", HandleStripeWebhook)

	resp := postWebhook(t, app, webhookBody("payment_intent.payment_failed", "pi_test_4", txn.ID.String()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloadedTxn models.PurchaseTransaction
	require.NoError(t, database.DB.First(&reloadedTxn, "id = ?", txn.ID).Error)
	assert.Equal(t, "failed", reloadedTxn.Status)

	var reloadedPkg models.HourPackage
	require.NoError(t, database.DB.First(&reloadedPkg, "id = ?", pkg.ID).Error)
	assert.Equal(t, models.PackageStatusFailed, reloadedPkg.Status)
}

func TestStripeWebhookIdempotent(t *testing.T) {
	app := setupTestApp(t)
	stubStripe(t, "succeeded", http.StatusOK)
	student := seedStudent(t, 0)
	_, txn := seedPendingPurchase(t, student, 10, 30)

	require.NoError(t, database.DB.Model(&txn).Update("status", "succeeded").Error)

	app.Post("/payments/stripe/webhook", HandleStripeWebhook)

	resp := postWebhook(t, app, webhookBody("payment_intent.succeeded", "pi_test_5", txn.ID.String()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The replayed event credits nothing a second time.
	var balance models.AccountBalance
	err := database.DB.Where("student_id = ?", student.ID).First(&balance).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
