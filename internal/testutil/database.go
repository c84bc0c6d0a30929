// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/storage"
)

// SetupTestDB creates an in-memory SQLite store with migrations applied.
// The default chart of accounts and rule set are seeded by the migrations.
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

// SeedTransactions inserts test transactions and returns them with the
// status defaulted.
func SeedTransactions(t *testing.T, store *storage.SQLiteStore, txns ...model.Transaction) []model.Transaction {
	t.Helper()

	for i := range txns {
		if txns[i].Date.IsZero() {
			txns[i].Date = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
		}
		if txns[i].Status == "" {
			txns[i].Status = model.StatusUnclassified
		}
	}

	if err := store.SaveTransactions(context.Background(), txns); err != nil {
		t.Fatalf("failed to seed transactions: %v", err)
	}

	return txns
}
