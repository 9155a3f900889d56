package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CardPayments is the only payment method type offered to the web client.
const CardPayments = "card"

// IntentRequest describes a payment intent to open with the processor.
type IntentRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent is the subset of the processor's payment intent the API returns.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// StripeProcessor creates payment intents through the Stripe API.
type StripeProcessor struct {
	api *client.API
}

// NewStripe builds a processor using the default Stripe backends.
func NewStripe(secretKey string) *StripeProcessor {
	return NewStripeWithBackends(secretKey, nil)
}

// NewStripeWithBackends builds a processor against custom backends, mainly
// for pointing the client at a local test server.
func NewStripeWithBackends(secretKey string, backends *stripe.Backends) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeProcessor{api: api}
}

// CreatePaymentIntent opens a card payment intent for the amount in minor
// currency units. The idempotency key makes client retries collapse onto a
// single processor-side intent.
func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, errors.New("payment amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{CardPayments}),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}
