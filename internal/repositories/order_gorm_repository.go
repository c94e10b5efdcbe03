package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wellnest/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository. The unique index on
// payment_intent_id is what guarantees a single order per intent.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order with its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	existing, err := r.GetByPaymentIntentID(ctx, order.PaymentIntentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		// A concurrent writer may have won the unique index.
		if existing, getErr := r.GetByPaymentIntentID(ctx, order.PaymentIntentID); getErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}
	return order, true, nil
}

// GetByID returns an order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByPaymentIntentID returns the order created for a payment intent.
func (r *GORMOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	return r.first(ctx, "payment_intent_id = ?", paymentIntentID)
}

func (r *GORMOrderRepository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", arg, err)
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (r *GORMOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
