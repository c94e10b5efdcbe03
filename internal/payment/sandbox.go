package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is an in-memory Gateway for development and tests. Intents stay pending
// until Resolve simulates the buyer's interaction with the provider.
type Sandbox struct {
	mu      sync.Mutex
	intents map[string]*Intent
	byKey   map[string]string
}

// NewSandbox creates an empty sandbox gateway.
func NewSandbox() *Sandbox {
	return &Sandbox{
		intents: make(map[string]*Intent),
		byKey:   make(map[string]string),
	}
}

// CreateIntent creates a pending intent or returns the one bound to idempotencyKey.
func (s *Sandbox) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string, _ map[string]string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sandbox create intent: %w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	currency = strings.ToLower(currency)
	if id, ok := s.byKey[idempotencyKey]; ok {
		existing := s.intents[id]
		if !existing.Amount.Equal(amount) || existing.Currency != currency {
			return nil, ErrIdempotencyMismatch
		}
		copied := *existing
		return &copied, nil
	}

	id := "pi_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	intent := &Intent{
		ID:             id,
		ClientSecret:   id + "_secret_" + uuid.New().String()[:8],
		Amount:         amount,
		AmountReceived: decimal.Zero,
		Currency:       currency,
		Status:         StatusPending,
	}
	s.intents[id] = intent
	s.byKey[idempotencyKey] = id
	copied := *intent
	return &copied, nil
}

// GetIntent returns a snapshot of the intent.
func (s *Sandbox) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sandbox get intent: %w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, fmt.Errorf("sandbox intent %s: %w", id, ErrIntentNotFound)
	}
	copied := *intent
	return &copied, nil
}

// CancelIntent cancels a pending intent.
func (s *Sandbox) CancelIntent(ctx context.Context, id string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sandbox cancel intent: %w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, fmt.Errorf("sandbox intent %s: %w", id, ErrIntentNotFound)
	}
	switch intent.Status {
	case StatusSucceeded, StatusProcessing:
		return nil, fmt.Errorf("sandbox intent %s is %s: %w", id, intent.Status, ErrNotCancelable)
	case StatusPending:
		intent.Status = StatusCanceled
	}
	copied := *intent
	return &copied, nil
}

// Resolve moves an intent to status as the provider would after the buyer pays.
func (s *Sandbox) Resolve(id string, status Status) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, fmt.Errorf("sandbox intent %s: %w", id, ErrIntentNotFound)
	}
	if intent.Status.Terminal() {
		return nil, fmt.Errorf("sandbox intent %s is already %s: %w", id, intent.Status, ErrNotCancelable)
	}
	intent.Status = status
	if status == StatusSucceeded {
		intent.AmountReceived = intent.Amount
	}
	copied := *intent
	return &copied, nil
}
