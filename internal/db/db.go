package db

import (
	"fmt"
	"strings"
	"time"

	"rawmat/internal/config"
	"rawmat/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Initialize opens the data store described by cfg. A postgres URL wins over the
// sqlite path; the sqlite file is created on first use.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	url := strings.TrimSpace(cfg.URL)
	path := strings.TrimSpace(cfg.Path)
	if url == "" && path == "" {
		return nil, fmt.Errorf("database URL or path must not be empty")
	}

	var dialector gorm.Dialector
	sqliteFile := false
	switch {
	case url != "":
		if !config.IsPostgresURL(url) {
			return nil, fmt.Errorf("unsupported database URL %q", url)
		}
		dialector = postgres.Open(url)
	default:
		dialector = sqlite.Open(sqliteDSN(path))
		sqliteFile = true
	}

	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	switch {
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	case sqliteFile:
		// sqlite allows a single writer; one connection keeps transactions from
		// failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_foreign_keys=off"
}

// AutoMigrate creates or updates the ingredients, formulas and production tables.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}

	return db.AutoMigrate(
		&models.Ingredient{},
		&models.Formula{},
		&models.FormulaComponent{},
		&models.ProductionRecord{},
		&models.ConsumedIngredient{},
	)
}

// Configure opens and migrates the data store.
func Configure(cfg config.DatabaseConfig) (*gorm.DB, error) {
	database, err := Initialize(cfg)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(database); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return database, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
