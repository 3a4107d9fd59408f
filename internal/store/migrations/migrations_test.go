package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	// All core tables must exist afterwards.
	for _, table := range []string{"projects", "print_jobs", "blobs", "attachments", "messages", "status_events", "printers", "materials", "colors"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	t.Parallel()

	t.Run("unmigrated database fails", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		if err := CheckStatus(db); err == nil {
			t.Fatal("expected error for unmigrated database")
		}
	})

	t.Run("migrated database passes", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp failed: %v", err)
		}
		if err := CheckStatus(db); err != nil {
			t.Fatalf("CheckStatus failed: %v", err)
		}
	})
}
