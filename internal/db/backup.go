package db

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	applog "rawmat/internal/log"
)

// ErrBackupUnsupported is returned when the store is not a sqlite database.
var ErrBackupUnsupported = errors.New("db: backup is only supported for sqlite stores")

// BackupResult describes a written backup file.
type BackupResult struct {
	Path   string
	Bytes  int64
	Digest string
}

// Backup writes a consistent copy of a sqlite store to dest using VACUUM INTO,
// then reopens the copy and runs an integrity check before reporting its
// blake2b-256 digest. dest must not exist yet.
func Backup(ctx context.Context, database *gorm.DB, dest string) (BackupResult, error) {
	if database == nil {
		return BackupResult{}, fmt.Errorf("database handle is nil")
	}
	if database.Dialector.Name() != "sqlite" {
		return BackupResult{}, ErrBackupUnsupported
	}
	if dest == "" {
		return BackupResult{}, fmt.Errorf("backup path must not be empty")
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return BackupResult{}, fmt.Errorf("resolve backup path: %w", err)
	}
	if _, err := os.Stat(abs); err == nil {
		return BackupResult{}, fmt.Errorf("backup target %s already exists", abs)
	} else if !errors.Is(err, os.ErrNotExist) {
		return BackupResult{}, fmt.Errorf("inspect backup target: %w", err)
	}

	applog.Debug(ctx, "writing database backup", "path", abs)
	if err := database.WithContext(ctx).Exec("VACUUM INTO ?", abs).Error; err != nil {
		return BackupResult{}, fmt.Errorf("vacuum into %s: %w", abs, err)
	}

	if err := verifyBackup(ctx, abs); err != nil {
		return BackupResult{}, err
	}

	size, digest, err := digestFile(abs)
	if err != nil {
		return BackupResult{}, err
	}

	applog.Info(ctx, "database backup written", "path", abs, "bytes", size, "blake2b", digest)
	return BackupResult{Path: abs, Bytes: size, Digest: digest}, nil
}

func verifyBackup(ctx context.Context, path string) error {
	copyDB, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer Close(copyDB)

	var result string
	if err := copyDB.WithContext(ctx).Raw("PRAGMA integrity_check").Scan(&result).Error; err != nil {
		return fmt.Errorf("check backup integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup integrity check failed: %s", result)
	}
	return nil
}

func digestFile(path string) (int64, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open backup for digest: %w", err)
	}
	defer file.Close()

	hash, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	size, err := io.Copy(hash, file)
	if err != nil {
		return 0, "", fmt.Errorf("digest backup: %w", err)
	}
	return size, hex.EncodeToString(hash.Sum(nil)), nil
}
