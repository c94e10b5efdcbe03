package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"wellnest/internal/models"
	"wellnest/internal/repositories"
)

// OrderService is the append-only ledger of placed orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	gate      *RoleGate
	events    EventPublisher
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, gate *RoleGate, events EventPublisher) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		gate:      gate,
		events:    events,
	}
}

// Record stores order once per payment intent. A repeated call for the same intent
// returns the stored order with created false.
func (s *OrderService) Record(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	if order.UserID == "" || order.PaymentIntentID == "" {
		return nil, false, invalid("order needs a user and a payment intent")
	}
	if len(order.Items) == 0 {
		return nil, false, invalid("order has no items")
	}
	if order.Status == "" {
		order.Status = models.OrderStatusConfirmed
	}

	stored, created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return stored, false, nil
	}

	log.Printf("Order %s recorded for user %s (intent %s, total %s %s)",
		stored.ID, stored.UserID, stored.PaymentIntentID, stored.Total.StringFixed(2), stored.Currency)
	publish(ctx, s.events, EventOrderCreated, OrderCreatedEvent{
		OrderID:         stored.ID,
		UserID:          stored.UserID,
		PaymentIntentID: stored.PaymentIntentID,
		Total:           stored.Total,
		Currency:        stored.Currency,
		Items:           len(stored.Items),
		PrescriptionID:  stored.PrescriptionID,
		CreatedAt:       stored.CreatedAt,
	})
	return stored, true, nil
}

// ListForUser returns the caller's own orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, user models.Principal) ([]models.Order, error) {
	if err := s.gate.Require(user, OwnsOrder(user.UserID)); err != nil {
		return nil, err
	}
	return s.orderRepo.ListByUser(ctx, user.UserID)
}

// Get returns one order if user owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, user models.Principal, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}
	if err := s.gate.Require(user, OwnsOrder(order.UserID)); err != nil {
		return nil, err
	}
	return order, nil
}

// ListAll returns every order. Admins only.
func (s *OrderService) ListAll(ctx context.Context, user models.Principal) ([]models.Order, error) {
	if err := s.gate.Require(user, ManageOrders()); err != nil {
		return nil, err
	}
	return s.orderRepo.ListAll(ctx)
}

func (s *OrderService) byPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order for intent %s", ErrNotFound, paymentIntentID)
		}
		return nil, err
	}
	return order, nil
}
