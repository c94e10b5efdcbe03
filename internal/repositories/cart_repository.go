package repositories

import (
	"context"

	"wellnest/internal/models"
)

// CartRepository persists carts keyed by user ID.
type CartRepository interface {
	// Get returns the user's cart, creating an empty one if none exists.
	Get(ctx context.Context, userID string) (*models.Cart, error)
	// Replace swaps the full item list if the stored version still equals expectedVersion.
	Replace(ctx context.Context, userID string, items []models.CartItem, expectedVersion int64) (*models.Cart, error)
}
