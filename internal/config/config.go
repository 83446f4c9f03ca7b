package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDatabasePath      = "raw_materials.db"
	defaultQuantityPrecision = 6
	minQuantityPrecision     = 1
	maxQuantityPrecision     = 9
)

// Config captures the runtime configuration for the application.
type Config struct {
	Database  DatabaseConfig
	Logging   LoggingConfig
	Inventory InventoryConfig
	Backup    BackupConfig
}

// DatabaseConfig contains the data store settings. Path names a sqlite file and
// is used unless URL points at a postgres server.
type DatabaseConfig struct {
	URL             string
	Path            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
}

// LoggingConfig controls log verbosity and destination.
type LoggingConfig struct {
	Level string
	File  string
}

// InventoryConfig tunes quantity handling.
type InventoryConfig struct {
	// QuantityPrecision is the number of decimal places kept for kilograms.
	QuantityPrecision int
}

// BackupConfig controls where database backups are written.
type BackupConfig struct {
	Dir string
}

// Load inspects the environment and builds a Config value.
func Load() (Config, error) {
	cfg := Config{}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			"",
		),
		Path: firstNonEmpty(
			os.Getenv("DATABASE_PATH"),
			os.Getenv("RAWMAT_DB"),
			defaultDatabasePath,
		),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 0),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 0),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), 0),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 0),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
	}

	cfg.Logging = LoggingConfig{
		Level: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
	}

	cfg.Inventory = InventoryConfig{
		QuantityPrecision: clamp(
			parseIntWithDefault(os.Getenv("QUANTITY_PRECISION"), defaultQuantityPrecision),
			minQuantityPrecision,
			maxQuantityPrecision,
		),
	}

	cfg.Backup = BackupConfig{
		Dir: firstNonEmpty(os.Getenv("BACKUP_DIR"), "."),
	}

	if url := strings.TrimSpace(cfg.Database.URL); url != "" && !IsPostgresURL(url) {
		return Config{}, fmt.Errorf("database URL must use the postgres:// or postgresql:// scheme")
	}

	return cfg, nil
}

// IsPostgresURL reports whether value names a postgres connection.
func IsPostgresURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
