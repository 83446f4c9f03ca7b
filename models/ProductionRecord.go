package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionRecord is the receipt of one executed batch. Consumed is a frozen
// copy of what the batch took from stock and is the only input to reversal.
// A reversed record is soft-deleted.
type ProductionRecord struct {
	gorm.Model
	ProductName string               `gorm:"not null;index" json:"product_name"`
	BatchSizeKg decimal.Decimal      `gorm:"type:decimal(24,9);not null" json:"batch_size_kg"`
	ProducedAt  time.Time            `gorm:"not null;index" json:"produced_at"`
	BatchNumber string               `json:"batch_number"`
	Consumed    []ConsumedIngredient `gorm:"foreignKey:ProductionRecordID" json:"consumed"`
}

// ConsumedIngredient is one line of a production record's snapshot.
type ConsumedIngredient struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ProductionRecordID uint            `gorm:"index;not null" json:"production_record_id"`
	Position           int             `gorm:"not null" json:"position"`
	IngredientName     string          `gorm:"not null" json:"ingredient_name"`
	Percentage         decimal.Decimal `gorm:"type:decimal(24,9);not null" json:"percentage"`
	QuantityKg         decimal.Decimal `gorm:"type:decimal(24,9);not null" json:"quantity_kg"`
}
