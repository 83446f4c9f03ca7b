package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Formula is a named product recipe: an ordered list of ingredient percentages.
type Formula struct {
	gorm.Model
	Name       string             `gorm:"not null" json:"name"`
	NameKey    string             `gorm:"uniqueIndex;not null" json:"-"`
	Components []FormulaComponent `gorm:"foreignKey:FormulaID" json:"components"`
}

// TotalPercentage sums the component percentages. Formulas conventionally
// total 100 but nothing enforces it.
func (f Formula) TotalPercentage() decimal.Decimal {
	total := decimal.Zero
	for _, component := range f.Components {
		total = total.Add(component.Percentage)
	}
	return total
}
