package repositories

import (
	"context"

	"wellnest/internal/models"
)

// ProductRepository is the read side of the catalog used by carts and checkout.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, product *models.Product) error
}
