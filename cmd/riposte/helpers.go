package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ripostebot/riposte/internal/classification"
	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/config"
	"github.com/ripostebot/riposte/internal/engine"
	"github.com/ripostebot/riposte/internal/guard"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/registry"
	"github.com/ripostebot/riposte/internal/respond"
	"github.com/ripostebot/riposte/internal/stats"
	"github.com/ripostebot/riposte/internal/storage"
	"github.com/spf13/viper"
)

// databasePath resolves the configured database location, defaulting to the
// user data directory. Tilde and environment variables are expanded.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "riposte.db")
	}
	return config.ExpandPath(dbPath)
}

// getDatabase opens the configured database and runs migrations.
// The returned cleanup closes the connection.
func getDatabase() (*storage.SQLiteStorage, func(), error) {
	db, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, nil, common.NewUserError("could not open the reply database", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, nil, common.NewUserError("could not update the database schema", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}

	return db, cleanup, nil
}

// loadRegistry builds a pattern registry from storage. When the database
// holds no enabled patterns the built-in defaults are used instead.
func loadRegistry(ctx context.Context, db *storage.SQLiteStorage) (*registry.Registry, error) {
	patterns, err := db.ListPatterns(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	if len(patterns) == 0 {
		slog.Info("No stored patterns, using built-in defaults",
			"hint", "run 'riposte patterns seed' to persist them")
		patterns = classification.DefaultPatterns()
	}

	reg, err := registry.NewWithPatterns(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern registry: %w", err)
	}

	slog.Debug("Loaded pattern registry", "patterns", reg.Len())

	return reg, nil
}

// buildEngine wires the full decision pipeline on top of an open database.
// The caller must Close the returned recorder to flush buffered outcomes.
func buildEngine(ctx context.Context, db *storage.SQLiteStorage) (*engine.DecisionEngine, *stats.Recorder, error) {
	reg, err := loadRegistry(ctx, db)
	if err != nil {
		return nil, nil, err
	}

	classifier, err := classification.NewClassifier(classification.Config{
		ConfidenceFloor:  viper.GetFloat64("classifier.confidence_floor"),
		KeywordBonus:     viper.GetFloat64("classifier.keyword_bonus"),
		MaxMessageLength: viper.GetInt("classifier.max_message_length"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	g, err := guard.New(guard.Config{
		MaxResponses:  viper.GetInt("guard.max_responses"),
		Window:        viper.GetDuration("guard.window"),
		LoopThreshold: viper.GetInt("guard.loop_threshold"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create response guard: %w", err)
	}

	recorder := stats.NewRecorder(db, stats.DefaultConfig())

	eng, err := engine.New(reg, classifier, g, respond.New(), recorder)
	if err != nil {
		_ = recorder.Close()
		return nil, nil, fmt.Errorf("failed to create decision engine: %w", err)
	}

	return eng, recorder, nil
}

// parseHistory converts a comma-separated origin list into model origins.
func parseHistory(raw string) ([]model.Origin, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	history := make([]model.Origin, 0, len(parts))
	for _, part := range parts {
		switch origin := model.Origin(strings.TrimSpace(strings.ToLower(part))); origin {
		case model.OriginUser, model.OriginAuto, model.OriginGenerator:
			history = append(history, origin)
		default:
			return nil, fmt.Errorf("invalid origin %q (valid: user, auto, generator)", part)
		}
	}

	return history, nil
}

// parseRecentTimestamps converts RFC 3339 timestamps into a recent-response list.
func parseRecentTimestamps(raw []string) ([]time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	recent := make([]time.Time, 0, len(raw))
	for _, value := range raw {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q (use RFC 3339): %w", value, err)
		}
		recent = append(recent, ts)
	}

	return recent, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
