package payments

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	config "github.com/aprendecomigo-edu/aprendecomigo-backend/configs"
	"github.com/shopspring/decimal"
)

type PaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

func stripeAPIBase() string {
	base := config.Config("STRIPE_API_BASE_URL")
	if base == "" {
		base = "https://api.stripe.com"
	}
	return base
}

// CreatePaymentIntent opens a Stripe payment intent for a package purchase.
// Stripe wants the amount in the currency's smallest unit.
func CreatePaymentIntent(amount decimal.Decimal, currency, purchaseRef string) (*PaymentIntent, error) {
	secretKey := config.Config("STRIPE_SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}

	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", cents))
	form.Set("currency", strings.ToLower(currency))
	form.Set("metadata[purchase_ref]", purchaseRef)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/v1/payment_intents", stripeAPIBase()), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", secretKey))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to create payment intent: %s", string(respBody))
	}

	var intent PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func GetPaymentIntent(intentID string) (*PaymentIntent, error) {
	secretKey := config.Config("STRIPE_SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/v1/payment_intents/%s", stripeAPIBase(), intentID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", secretKey))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch payment intent: %s", string(respBody))
	}

	var intent PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
