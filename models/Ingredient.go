package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ingredient is a raw material held in stock. Quantities are kilograms.
type Ingredient struct {
	gorm.Model
	Name       string          `gorm:"not null" json:"name"`
	NameKey    string          `gorm:"uniqueIndex;not null" json:"-"`
	QuantityKg decimal.Decimal `gorm:"type:decimal(24,9);not null;default:0" json:"quantity_kg"`
	Supplier   string          `json:"supplier"`
}

// NameKey folds a display name into the key used for case-insensitive uniqueness.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
