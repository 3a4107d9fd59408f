package testutil

import (
	"testing"
	"time"

	"neofab/internal/core"
	"neofab/internal/store"
	"neofab/internal/store/migrations"
)

// NewTestStore creates a new in-memory SQLite store with the schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) core.Store {
	t.Helper()

	sqlDB, err := store.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to migrate store: %v", err)
	}

	s := store.NewSQLiteStoreFromDB(sqlDB, ":memory:", 5*time.Second)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
