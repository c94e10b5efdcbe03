package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The catalog is read-only for this service apart from seeding.
type Product struct {
	ID                   string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name                 string          `json:"name" gorm:"type:varchar(150)"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	Stock                int             `json:"stock"`
	Image                string          `json:"image"`
	Category             string          `json:"category" gorm:"index;type:varchar(64)"`
	RequiresPrescription bool            `json:"requires_prescription"`
	CreatedAt            time.Time       `json:"-"`
	UpdatedAt            time.Time       `json:"-"`
}
