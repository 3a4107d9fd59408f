package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"neofab/internal/config"
	"neofab/internal/core"
	"neofab/internal/store/migrations"
)

// NewStoreFromConfig creates a Store implementation based on the store config type.
// SQLite stores are migrated to the latest schema before use.
func NewStoreFromConfig(cfg config.StoreConfig) (core.Store, error) {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond

	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return newMigratedSQLiteStore(filepath.Join(cfg.DataDir, "neofab.db"), timeout)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

func newMigratedSQLiteStore(path string, timeout time.Duration) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store at %s: %w", path, err)
	}
	return NewSQLiteStoreFromDB(db, path, timeout), nil
}
