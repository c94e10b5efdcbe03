// Package payment is the boundary to the external tokenized-payment provider.
// Adapters classify failures but carry no business rules.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Status is the gateway-owned state of a payment intent, normalized across providers.
type Status string

const (
	StatusPending    Status = "pending"    // Waiting for the buyer to supply or confirm a payment method
	StatusProcessing Status = "processing" // Submitted, outcome not yet known
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether the intent can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

var (
	// ErrUnavailable marks retryable failures: network errors, timeouts, 5xx and rate limits.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrDeclined marks a terminal refusal by the provider.
	ErrDeclined = errors.New("payment declined")
	// ErrIntentNotFound is returned for unknown intent ids.
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrIdempotencyMismatch is returned when a key is reused with different parameters.
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different parameters")
	// ErrNotCancelable is returned when the intent state no longer allows cancellation.
	ErrNotCancelable = errors.New("payment intent can no longer be canceled")
)

// Intent is the gateway's view of a charge attempt.
type Intent struct {
	ID             string          `json:"id"`
	ClientSecret   string          `json:"client_secret,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	Currency       string          `json:"currency"`
	Status         Status          `json:"status"`
}

// Gateway creates and inspects payment intents.
type Gateway interface {
	// CreateIntent returns the existing intent when idempotencyKey was used before.
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) (*Intent, error)
}

// ToMinorUnits converts a major-unit amount (19.98) to minor units (1998).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts minor units (1998) back to a major-unit amount (19.98).
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -2)
}
