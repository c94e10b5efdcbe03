package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line of a cart. Name, Price and Image are captured when
// the product is first added and are not refreshed afterwards.
type CartItem struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	CartUserID string          `json:"-" gorm:"index;type:varchar(36)"`
	Position   int             `json:"-"`
	ProductID  string          `json:"product_id" gorm:"type:varchar(36)"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	Image      string          `json:"image"`
	Quantity   int             `json:"quantity"`
}

// Subtotal returns price * quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is owned by exactly one user and is never deleted, only emptied.
type Cart struct {
	UserID    string          `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	Items     []CartItem      `json:"items" gorm:"foreignKey:CartUserID;references:UserID;constraint:OnDelete:CASCADE"`
	Total     decimal.Decimal `json:"total" gorm:"-"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Recalculate sorts the items by position and recomputes Total from them.
func (c *Cart) Recalculate() {
	sort.SliceStable(c.Items, func(i, j int) bool { return c.Items[i].Position < c.Items[j].Position })
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.Total = total
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Fingerprint identifies the cart contents independent of item order.
func (c *Cart) Fingerprint() string {
	return FingerprintItems(c.Items)
}

// FingerprintItems builds a stable "product:quantity:price" digest source for items.
func FingerprintItems(items []CartItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", item.ProductID, item.Quantity, item.Price.StringFixed(2)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
