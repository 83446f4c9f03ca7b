package models

import (
	"github.com/shopspring/decimal"
)

// FormulaComponent links a formula to an ingredient by name. The link is weak:
// deleting the ingredient leaves the component in place.
type FormulaComponent struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	FormulaID      uint            `gorm:"index;not null" json:"formula_id"`
	Position       int             `gorm:"not null" json:"position"`
	IngredientName string          `gorm:"not null" json:"ingredient_name"`
	Percentage     decimal.Decimal `gorm:"type:decimal(24,9);not null" json:"percentage"`
}
