package services

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"wellnest/internal/models"
)

// Routing keys of the domain events.
const (
	EventOrderCreated              = "order.created"
	EventPrescriptionStatusChanged = "prescription.status_changed"
)

// EventPublisher delivers domain events to downstream consumers (fulfillment, notifications).
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// OrderCreatedEvent is published once per created order.
type OrderCreatedEvent struct {
	OrderID         string          `json:"order_id"`
	UserID          string          `json:"user_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Items           int             `json:"items"`
	PrescriptionID  *string         `json:"prescription_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PrescriptionStatusChangedEvent is published after each successful transition.
type PrescriptionStatusChangedEvent struct {
	PrescriptionID string                    `json:"prescription_id"`
	UserID         string                    `json:"user_id"`
	From           models.PrescriptionStatus `json:"from"`
	To             models.PrescriptionStatus `json:"to"`
	ReviewedBy     string                    `json:"reviewed_by"`
	ChangedAt      time.Time                 `json:"changed_at"`
}

// publish is best effort: a broker outage never fails the operation that produced the event.
func publish(ctx context.Context, publisher EventPublisher, routingKey string, event interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
