package repositories

import (
	"context"

	"wellnest/internal/models"
)

// CheckoutRepository persists checkout attempts keyed by payment intent ID.
type CheckoutRepository interface {
	// Save inserts the attempt or overwrites the non-terminal one with the same intent ID.
	Save(ctx context.Context, checkout *models.Checkout) error
	GetByIntentID(ctx context.Context, paymentIntentID string) (*models.Checkout, error)
	// SetStatus moves the attempt to status; orderID is stored when non-empty.
	SetStatus(ctx context.Context, paymentIntentID string, status models.CheckoutStatus, orderID string) error
	// CountClosed counts completed, failed or canceled attempts of userID for the same cart fingerprint.
	CountClosed(ctx context.Context, userID, fingerprint string) (int64, error)
}
