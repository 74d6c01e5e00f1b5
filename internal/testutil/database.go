// Package testutil provides shared test helpers for the receipt pipeline.
package testutil

import (
	"context"
	"testing"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/storage"
)

// SetupTestDB creates a new in-memory receipt store with migrations applied.
// Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
