package mock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"rawmat/models"
)

func TestNewSeedsExpectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := New(ctx)
	if err != nil {
		t.Fatalf("mock database initialization failed: %v", err)
	}

	var ingredients []models.Ingredient
	if err := db.WithContext(ctx).Find(&ingredients).Error; err != nil {
		t.Fatalf("query ingredients: %v", err)
	}
	if len(ingredients) != 4 {
		t.Fatalf("expected 4 seeded ingredients, got %d", len(ingredients))
	}

	var citric models.Ingredient
	if err := db.WithContext(ctx).Where("name_key = ?", "citric acid").First(&citric).Error; err != nil {
		t.Fatalf("query citric acid: %v", err)
	}
	if !citric.QuantityKg.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("citric acid stock = %s, want 10", citric.QuantityKg)
	}

	var formula models.Formula
	if err := db.WithContext(ctx).Preload("Components").Where("name_key = ?", "cleanerx").First(&formula).Error; err != nil {
		t.Fatalf("query formula: %v", err)
	}
	if len(formula.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(formula.Components))
	}
	if !formula.TotalPercentage().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("CleanerX total = %s, want 100", formula.TotalPercentage())
	}
}

func TestEmptyDatabasesAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, err := Empty(ctx)
	if err != nil {
		t.Fatalf("Empty() error = %v", err)
	}
	second, err := Empty(ctx)
	if err != nil {
		t.Fatalf("Empty() error = %v", err)
	}

	if err := first.Create(&models.Ingredient{Name: "Water", NameKey: "water"}).Error; err != nil {
		t.Fatalf("create ingredient: %v", err)
	}

	var count int64
	if err := second.Model(&models.Ingredient{}).Count(&count).Error; err != nil {
		t.Fatalf("count ingredients: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected second database to be empty, got %d rows", count)
	}
}
