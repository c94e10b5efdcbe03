package repositories

import (
	"context"

	"wellnest/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never updated or deleted through it.
type OrderRepository interface {
	// Create stores order unless one already exists for its PaymentIntentID, in which
	// case the existing order is returned and created is false.
	Create(ctx context.Context, order *models.Order) (stored *models.Order, created bool, err error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}
