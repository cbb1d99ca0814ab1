// Package testing provides testing utilities and helpers for the distributor.
package testing

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/distributor/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed database in a temporary directory with the
// schema applied. The database is closed when the test finishes.
// Use it where a real file matters (VACUUM INTO, WAL checkpoints, stats).
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "distributor.db"),
		Profile: database.ProfileStandard,
		Name:    "distributor",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
	})

	return db
}

// NewMemoryDB opens an in-memory database with the schema applied. The pool is
// pinned to one connection because every new :memory: connection is a new,
// empty database.
func NewMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := database.ApplySchema(db); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return db
}

// CreateTempDBFile returns a path inside a temporary directory for tests that
// need a database file that does not exist yet
func CreateTempDBFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".db")
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("Temporary database file %s already exists", path)
	}
	return path
}
