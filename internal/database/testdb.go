package database

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// NewTestDB opens a migrated and seeded SQLite database in a temporary
// directory that is removed when the test ends.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open("sqlite://"+filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting test database handle: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	if err := SeedCategories(context.Background(), db); err != nil {
		t.Fatalf("seeding test database: %v", err)
	}

	return db
}
