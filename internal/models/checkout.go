package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutStatus tracks one checkout attempt through the saga.
type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"   // Intent created, waiting for the buyer to pay
	CheckoutPaid      CheckoutStatus = "paid"      // Gateway reported success, order not yet recorded
	CheckoutCompleted CheckoutStatus = "completed" // Order recorded
	CheckoutFailed    CheckoutStatus = "failed"
	CheckoutCanceled  CheckoutStatus = "canceled"
)

// Terminal reports whether no further saga step applies.
func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutCompleted || s == CheckoutFailed || s == CheckoutCanceled
}

// Checkout is the server-side record of a checkout attempt, keyed by payment intent id.
type Checkout struct {
	PaymentIntentID string          `json:"payment_intent_id" gorm:"primaryKey;type:varchar(255)"`
	UserID          string          `json:"user_id" gorm:"index:idx_checkout_user_fp;type:varchar(36)"`
	Fingerprint     string          `json:"-" gorm:"index:idx_checkout_user_fp"`
	IdempotencyKey  string          `json:"-" gorm:"type:varchar(64)"`
	Items           []CartItem      `json:"items" gorm:"serializer:json"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`
	Currency        string          `json:"currency" gorm:"type:varchar(8)"`
	Address         Address         `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	PrescriptionID  *string         `json:"prescription_id,omitempty" gorm:"type:varchar(36)"`
	Status          CheckoutStatus  `json:"status" gorm:"type:varchar(16)"`
	OrderID         string          `json:"order_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
