package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wellnest/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders   map[string]models.Order
	byIntent map[string]string
	mu       sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[string]models.Order),
		byIntent: make(map[string]string),
	}
}

// Create adds a new order unless its payment intent was already consumed.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byIntent[order.PaymentIntentID]; ok {
		existing := r.orders[id]
		return &existing, false, nil
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	r.orders[order.ID] = *order
	r.byIntent[order.PaymentIntentID] = order.ID
	return order, true, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return &order, nil
}

// GetByPaymentIntentID returns the order created for a payment intent.
func (r *MockOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	r.mu.RLock()
	id, ok := r.byIntent[paymentIntentID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("order %s: %w", paymentIntentID, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// ListByUser returns the user's orders, newest first.
func (r *MockOrderRepository) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.UserID == userID }), nil
}

// ListAll returns every order, newest first.
func (r *MockOrderRepository) ListAll(_ context.Context) ([]models.Order, error) {
	return r.list(func(models.Order) bool { return true }), nil
}

func (r *MockOrderRepository) list(keep func(models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if keep(order) {
			orderList = append(orderList, order)
		}
	}
	sort.Slice(orderList, func(i, j int) bool { return orderList[i].CreatedAt.After(orderList[j].CreatedAt) })
	return orderList
}
