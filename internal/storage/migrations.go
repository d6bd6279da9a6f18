package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the schema version this build writes and reads.
const ExpectedSchemaVersion = 3

// A migration is a numbered batch of DDL statements. Each batch runs inside
// one transaction together with the version bump, so a failed batch leaves
// the schema untouched.
type migration struct {
	description string
	statements  []string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "patterns and outcomes tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS patterns (
				id TEXT PRIMARY KEY,
				trigger_regex TEXT NOT NULL,
				type TEXT NOT NULL,
				template TEXT NOT NULL,
				priority TEXT NOT NULL,
				keywords TEXT NOT NULL DEFAULT '[]',
				base_confidence REAL NOT NULL,
				min_confidence REAL NOT NULL DEFAULT 0.5,
				requires_context INTEGER NOT NULL DEFAULT 0,
				enabled INTEGER NOT NULL DEFAULT 1,
				use_count INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE TABLE IF NOT EXISTS outcomes (
				id TEXT PRIMARY KEY,
				pattern_id TEXT,
				user_id TEXT NOT NULL,
				timestamp DATETIME NOT NULL,
				was_sent INTEGER NOT NULL,
				user_accepted INTEGER,
				feedback TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
	{
		version:     2,
		description: "indexes for outcome reporting",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_outcomes_pattern ON outcomes(pattern_id)`,
			`CREATE INDEX IF NOT EXISTS idx_outcomes_user ON outcomes(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_outcomes_timestamp ON outcomes(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_patterns_enabled ON patterns(enabled)`,
		},
	},
	{
		version:     3,
		description: "track when feedback was attached",
		statements: []string{
			`ALTER TABLE outcomes ADD COLUMN reviewed_at DATETIME`,
		},
	},
}

// SchemaVersion reports the schema version stored in the database file.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate brings the schema up to ExpectedSchemaVersion, applying pending
// migrations in order.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}

		slog.Info("Applied migration",
			"version", m.version,
			"description", m.description)
	}

	final, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch after migrating: expected %d, got %d",
			ExpectedSchemaVersion, final)
	}

	return nil
}

func (s *SQLiteStorage) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, statement := range m.statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	// PRAGMA takes no placeholders; the version is a trusted constant
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}
