package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment label of an order. Progression is owned by fulfillment.
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed" // Paid and recorded
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Address is captured per checkout attempt and copied onto the order.
type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36)"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"` // Price at the time of order
	Quantity  int             `json:"quantity"`
}

// Order represents a paid customer order. Exactly one order exists per payment intent.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"index;type:varchar(36)"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`
	Currency        string          `json:"currency" gorm:"type:varchar(8)"`
	Address         Address         `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20)"`
	PaymentIntentID string          `json:"payment_intent_id" gorm:"uniqueIndex;type:varchar(255)"`
	PrescriptionID  *string         `json:"prescription_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
}
