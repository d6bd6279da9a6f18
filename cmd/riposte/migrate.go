package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ripostebot/riposte/internal/cli"
	"github.com/ripostebot/riposte/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Bring the database schema up to the version this build expects.

Migrations are additive and safe to re-run. Most commands apply them
automatically, so running this by hand is only needed after upgrades,
or with --status to inspect the version on disk.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Report the schema version without changing anything")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	dbPath := databasePath()

	// Open without migrating so --status reports the version on disk
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
		return reportSchemaStatus(ctx, store, dbPath)
	}

	slog.Info("🗄️  Applying database migrations", "database", dbPath)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout, cli.FormatSuccess("Database schema is current"))

	return nil
}

func reportSchemaStatus(ctx context.Context, store *storage.SQLiteStorage, dbPath string) error {
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	slog.Info("📊 Schema status",
		"database", dbPath,
		"on_disk", version,
		"expected", storage.ExpectedSchemaVersion)

	if version < storage.ExpectedSchemaVersion {
		_, _ = fmt.Fprintln(os.Stdout, cli.FormatWarning("Database is behind, run 'riposte migrate' to update"))
	} else {
		_, _ = fmt.Fprintln(os.Stdout, cli.FormatSuccess("Database is up to date"))
	}

	return nil
}
