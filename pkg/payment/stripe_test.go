package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func newTestProcessor(t *testing.T, handler http.HandlerFunc) *StripeProcessor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeWithBackends("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestCreatePaymentIntent(t *testing.T) {
	var form map[string]string
	var idempotencyKey string
	processor := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"amount":                  r.PostForm.Get("amount"),
			"currency":                r.PostForm.Get("currency"),
			"payment_method_types[0]": r.PostForm.Get("payment_method_types[0]"),
			"metadata[class_id]":      r.PostForm.Get("metadata[class_id]"),
		}
		idempotencyKey = r.Header.Get("Idempotency-Key")
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","amount":1550,"currency":"usd","client_secret":"pi_123_secret_abc"}`))
	})

	intent, err := processor.CreatePaymentIntent(context.Background(), IntentRequest{
		Amount:         1550,
		Currency:       "usd",
		IdempotencyKey: "key-1",
		Metadata:       map[string]string{"class_id": "c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, int64(1550), intent.Amount)

	assert.Equal(t, "1550", form["amount"])
	assert.Equal(t, "usd", form["currency"])
	assert.Equal(t, CardPayments, form["payment_method_types[0]"])
	assert.Equal(t, "c1", form["metadata[class_id]"])
	assert.Equal(t, "key-1", idempotencyKey)
}

func TestCreatePaymentIntentProcessorError(t *testing.T) {
	processor := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 50 cents"}}`))
	})

	_, err := processor.CreatePaymentIntent(context.Background(), IntentRequest{Amount: 10, Currency: "usd"})
	assert.Error(t, err)
}

func TestCreatePaymentIntentRejectsNonPositiveAmount(t *testing.T) {
	processor := NewStripe("sk_test_123")
	_, err := processor.CreatePaymentIntent(context.Background(), IntentRequest{Amount: 0, Currency: "usd"})
	assert.Error(t, err)
}
