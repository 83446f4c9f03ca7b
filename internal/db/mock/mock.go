package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "rawmat/internal/log"
	"rawmat/models"
)

var sequence atomic.Uint64

// New returns an in-memory sqlite database seeded with representative stock and formulas.
func New(ctx context.Context) (*gorm.DB, error) {
	db, err := Empty(ctx)
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

// Empty returns a migrated in-memory sqlite database with no rows. Every call
// gets its own database so parallel tests stay isolated.
func Empty(ctx context.Context) (*gorm.DB, error) {
	name := fmt.Sprintf("rawmat-mock-%d", sequence.Add(1))
	applog.Debug(ctx, "initialising mock database", "name", name)

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A shared-cache memory database disappears with its last connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.Formula{},
		&models.FormulaComponent{},
		&models.ProductionRecord{},
		&models.ConsumedIngredient{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	stock := []models.Ingredient{
		{Name: "Citric Acid", QuantityKg: decimal.NewFromInt(10), Supplier: "Jungbunzlauer"},
		{Name: "Water", QuantityKg: decimal.NewFromInt(100), Supplier: "Mains"},
		{Name: "Sodium Laureth Sulfate", QuantityKg: decimal.NewFromInt(25), Supplier: "Galaxy Surfactants"},
		{Name: "Lemon Fragrance", QuantityKg: decimal.RequireFromString("4.5"), Supplier: "Givaudan"},
	}
	for i := range stock {
		stock[i].NameKey = models.NameKey(stock[i].Name)
		if err := db.WithContext(ctx).Create(&stock[i]).Error; err != nil {
			return err
		}
	}

	formulas := []models.Formula{
		{
			Name: "CleanerX",
			Components: []models.FormulaComponent{
				{Position: 1, IngredientName: "Citric Acid", Percentage: decimal.NewFromInt(50)},
				{Position: 2, IngredientName: "Water", Percentage: decimal.NewFromInt(50)},
			},
		},
		{
			Name: "Dish Soap",
			Components: []models.FormulaComponent{
				{Position: 1, IngredientName: "Sodium Laureth Sulfate", Percentage: decimal.NewFromInt(20)},
				{Position: 2, IngredientName: "Water", Percentage: decimal.RequireFromString("78.5")},
				{Position: 3, IngredientName: "Lemon Fragrance", Percentage: decimal.RequireFromString("1.5")},
			},
		},
	}
	for i := range formulas {
		formulas[i].NameKey = models.NameKey(formulas[i].Name)
		if err := db.WithContext(ctx).Create(&formulas[i]).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
