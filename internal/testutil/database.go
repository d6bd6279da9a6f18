// Package testutil provides shared helpers for tests: throwaway in-memory
// databases and the pattern fixtures decision tests are built from.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/service"
	"github.com/ripostebot/riposte/internal/storage"
)

// TestDB bundles an open storage handle with the patterns it was seeded with.
type TestDB struct {
	Storage  service.Storage
	Patterns []model.Pattern
}

// TestDBOptions tweaks how the throwaway database is prepared.
type TestDBOptions struct {
	// CustomSetup runs after migrations and pattern seeding.
	CustomSetup    func(context.Context, service.Storage) error
	Patterns       []model.Pattern
	SkipMigrations bool
}

// SetupTestDB opens a migrated in-memory database seeded with the given
// patterns. Cleanup is registered on t.
//
//	db := testutil.SetupTestDB(t, testutil.ScenarioPatterns()...)
func SetupTestDB(t *testing.T, patterns ...model.Pattern) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Patterns: patterns})
}

// SetupTestDBWithOptions is SetupTestDB with knobs for the rare test that
// needs an unmigrated schema or extra seed data.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "open in-memory database")
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if !opts.SkipMigrations {
		require.NoError(t, store.Migrate(ctx), "migrate test database")
	}

	for i := range opts.Patterns {
		require.NoError(t, store.SavePattern(ctx, &opts.Patterns[i]),
			"seed pattern %q", opts.Patterns[i].ID)
	}

	if opts.CustomSetup != nil {
		require.NoError(t, opts.CustomSetup(ctx, store), "custom setup")
	}

	return &TestDB{Storage: store, Patterns: opts.Patterns}
}

// WithTransaction hands fn a transaction that is rolled back afterwards, so
// a test can exercise writes without leaking state into later assertions.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
