package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"rawmat/internal/config"
	"rawmat/internal/console"
	"rawmat/internal/db"
	"rawmat/internal/db/mock"
	"rawmat/internal/inventory"
	applog "rawmat/internal/log"
)

type session interface {
	Run(ctx context.Context) error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	openLogFileFunc     = applog.OpenFile
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	newSessionFunc      = func(inv *inventory.Inventory, cfg config.Config) session {
		return console.New(inv, os.Stdin, os.Stdout, console.Options{BackupDir: cfg.Backup.Dir})
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}

	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return 1
	}

	logFile, err := openLogFileFunc(cfg.Logging.File)
	if err != nil {
		applog.Error(ctx, "failed to open log file", "path", cfg.Logging.File, "error", err)
		return 1
	}
	defer closeQuietly(ctx, logFile)

	var database *gorm.DB
	if cfg.Database.UseMock {
		applog.Info(ctx, "using in-memory mock database")
		database, err = newMockDatabaseFunc(ctx)
	} else {
		database, err = configureDatabase(cfg.Database)
	}
	if err != nil {
		applog.Error(ctx, "failed to open database", "error", err)
		return 1
	}
	defer func() {
		if err := db.Close(database); err != nil {
			applog.Error(ctx, "failed to close database", "error", err)
		}
	}()

	inv, err := inventory.New(database, inventory.Options{Precision: int32(cfg.Inventory.QuantityPrecision)})
	if err != nil {
		applog.Error(ctx, "failed to prepare inventory", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		errCh <- newSessionFunc(inv, cfg).Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			applog.Error(ctx, "console stopped", "error", err)
			return 1
		}
		return 0
	case sig := <-sigCh:
		applog.Info(ctx, "shutdown signal received", "signal", sig.String())
		cancel()
		return 0
	}
}

func closeQuietly(ctx context.Context, c io.Closer) {
	if err := c.Close(); err != nil {
		applog.Warn(ctx, "failed to close", "error", err)
	}
}
