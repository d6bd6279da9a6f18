package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh database reaches current version", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, ExpectedSchemaVersion, version)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		require.NoError(t, store.Migrate(ctx))
		require.NoError(t, store.Migrate(ctx))

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, ExpectedSchemaVersion, version)
	})

	t.Run("creates tables", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		for _, table := range []string{"patterns", "outcomes"} {
			var name string
			err := store.db.QueryRowContext(ctx,
				`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
			).Scan(&name)
			require.NoError(t, err, "table %s should exist", table)
			assert.Equal(t, table, name)
		}
	})

	t.Run("creates indexes", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		indexes := []string{
			"idx_outcomes_pattern",
			"idx_outcomes_user",
			"idx_outcomes_timestamp",
			"idx_patterns_enabled",
		}
		for _, index := range indexes {
			var name string
			err := store.db.QueryRowContext(ctx,
				`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, index,
			).Scan(&name)
			require.NoError(t, err, "index %s should exist", index)
		}
	})

	t.Run("unmigrated database reports version zero", func(t *testing.T) {
		store, err := NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, version)
	})

	t.Run("schema version requires a context", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.SchemaVersion(nil) //nolint:staticcheck // nil context is the case under test
		assert.Error(t, err)
	})
}
