package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway adapts Stripe PaymentIntents to Gateway.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe client whose HTTP calls are bounded by timeout.
func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(2),
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}
	return &StripeGateway{api: client.New(secretKey, backends)}
}

// CreateIntent creates a PaymentIntent with the given idempotency key.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError("create intent", err)
	}
	return fromStripe(pi), nil
}

// GetIntent retrieves the current state of an intent.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, classifyStripeError("get intent "+id, err)
	}
	return fromStripe(pi), nil
}

// CancelIntent cancels an intent that has not been captured.
func (g *StripeGateway) CancelIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Cancel(id, params)
	if err != nil {
		return nil, classifyStripeError("cancel intent "+id, err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:             pi.ID,
		ClientSecret:   pi.ClientSecret,
		Amount:         FromMinorUnits(pi.Amount),
		AmountReceived: FromMinorUnits(pi.AmountReceived),
		Currency:       string(pi.Currency),
		Status:         fromStripeStatus(pi.Status),
	}
}

func fromStripeStatus(s stripe.PaymentIntentStatus) Status {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusCanceled
	case stripe.PaymentIntentStatusProcessing:
		return StatusProcessing
	default:
		// requires_payment_method, requires_confirmation, requires_action, requires_capture
		return StatusPending
	}
}

// classifyStripeError maps Stripe failures onto the retryable/terminal sentinels.
func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		// Transport level: DNS, connection reset, client timeout.
		return fmt.Errorf("stripe %s: %w: %v", op, ErrUnavailable, err)
	}
	switch {
	case stripeErr.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("stripe %s: %w: %s", op, ErrDeclined, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorTypeIdempotency:
		return fmt.Errorf("stripe %s: %w", op, ErrIdempotencyMismatch)
	case stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound:
		return fmt.Errorf("stripe %s: %w", op, ErrIntentNotFound)
	case stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState:
		return fmt.Errorf("stripe %s: %w: %s", op, ErrNotCancelable, stripeErr.Msg)
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.HTTPStatusCode >= 500:
		return fmt.Errorf("stripe %s: %w: %s", op, ErrUnavailable, stripeErr.Msg)
	default:
		return fmt.Errorf("stripe %s: %w", op, err)
	}
}
