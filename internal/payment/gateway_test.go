package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v76"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1998), ToMinorUnits(decimal.RequireFromString("19.98")))
	assert.Equal(t, int64(1000), ToMinorUnits(decimal.RequireFromString("9.999")))
	assert.True(t, FromMinorUnits(1998).Equal(decimal.RequireFromString("19.98")))
}

func TestSandbox_CreateIntentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := NewSandbox()
	amount := decimal.RequireFromString("19.98")

	first, err := gw.CreateIntent(ctx, amount, "USD", "key-1", nil)
	require.NoError(t, err)
	second, err := gw.CreateIntent(ctx, amount, "usd", "key-1", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StatusPending, second.Status)

	other, err := gw.CreateIntent(ctx, amount, "usd", "key-2", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = gw.CreateIntent(ctx, decimal.RequireFromString("5.00"), "usd", "key-1", nil)
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)
}

func TestSandbox_ResolveAndCancel(t *testing.T) {
	ctx := context.Background()
	gw := NewSandbox()

	intent, err := gw.CreateIntent(ctx, decimal.RequireFromString("10.00"), "usd", "k", nil)
	require.NoError(t, err)

	resolved, err := gw.Resolve(intent.ID, StatusSucceeded)
	require.NoError(t, err)
	assert.True(t, resolved.AmountReceived.Equal(decimal.RequireFromString("10.00")))

	_, err = gw.CancelIntent(ctx, intent.ID)
	assert.ErrorIs(t, err, ErrNotCancelable)

	pending, err := gw.CreateIntent(ctx, decimal.RequireFromString("3.00"), "usd", "k2", nil)
	require.NoError(t, err)
	canceled, err := gw.CancelIntent(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	_, err = gw.GetIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestSandbox_CanceledContextIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSandbox().CreateIntent(ctx, decimal.NewFromInt(1), "usd", "k", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFromStripeStatus(t *testing.T) {
	cases := map[stripe.PaymentIntentStatus]Status{
		stripe.PaymentIntentStatusSucceeded:             StatusSucceeded,
		stripe.PaymentIntentStatusCanceled:              StatusCanceled,
		stripe.PaymentIntentStatusProcessing:            StatusProcessing,
		stripe.PaymentIntentStatusRequiresPaymentMethod: StatusPending,
		stripe.PaymentIntentStatusRequiresAction:        StatusPending,
	}
	for in, want := range cases {
		assert.Equal(t, want, fromStripeStatus(in), string(in))
	}
}

func TestClassifyStripeError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"network", errors.New("dial tcp: i/o timeout"), ErrUnavailable},
		{"server", &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusBadGateway}, ErrUnavailable},
		{"rate limit", &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusTooManyRequests}, ErrUnavailable},
		{"card", &stripe.Error{Type: stripe.ErrorTypeCard, HTTPStatusCode: http.StatusPaymentRequired}, ErrDeclined},
		{"idempotency", &stripe.Error{Type: stripe.ErrorTypeIdempotency, HTTPStatusCode: http.StatusBadRequest}, ErrIdempotencyMismatch},
		{"missing", &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound}, ErrIntentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyStripeError("op", tc.err), tc.want)
		})
	}
}
