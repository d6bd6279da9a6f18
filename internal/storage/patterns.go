package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
)

const patternColumns = `id, trigger_regex, type, template, priority, keywords,
	base_confidence, min_confidence, requires_context, enabled, use_count,
	created_at, updated_at`

// SavePattern inserts a pattern or updates it in place when the ID exists.
// UseCount and CreatedAt survive updates.
func (s *SQLiteStorage) SavePattern(ctx context.Context, pattern *model.Pattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}
	return s.savePatternIn(ctx, s.db, pattern)
}

func (s *SQLiteStorage) savePatternIn(ctx context.Context, q querier, pattern *model.Pattern) error {
	keywords, err := json.Marshal(pattern.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	query := `
		INSERT INTO patterns (
			id, trigger_regex, type, template, priority, keywords,
			base_confidence, min_confidence, requires_context, enabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trigger_regex = excluded.trigger_regex,
			type = excluded.type,
			template = excluded.template,
			priority = excluded.priority,
			keywords = excluded.keywords,
			base_confidence = excluded.base_confidence,
			min_confidence = excluded.min_confidence,
			requires_context = excluded.requires_context,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := q.ExecContext(ctx, query,
		pattern.ID, pattern.Trigger, pattern.Type, pattern.Template,
		pattern.Priority, string(keywords), pattern.BaseConfidence,
		pattern.MinConfidence, pattern.RequiresContext, pattern.Enabled,
	); err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	return nil
}

// GetPattern retrieves a pattern by ID.
func (s *SQLiteStorage) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getPatternIn(ctx, s.db, id)
}

func (s *SQLiteStorage) getPatternIn(ctx context.Context, q querier, id string) (*model.Pattern, error) {
	query := fmt.Sprintf(`SELECT %s FROM patterns WHERE id = ?`, patternColumns)

	pattern, err := scanPattern(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: pattern %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	return pattern, nil
}

// ListPatterns retrieves patterns ordered the way the registry serves them:
// priority descending, then ID.
func (s *SQLiteStorage) ListPatterns(ctx context.Context, includeDisabled bool) ([]model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listPatternsIn(ctx, s.db, includeDisabled)
}

func (s *SQLiteStorage) listPatternsIn(ctx context.Context, q querier, includeDisabled bool) ([]model.Pattern, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM patterns
		WHERE enabled = 1 OR ? = 1
		ORDER BY CASE priority
			WHEN 'immediate' THEN 3
			WHEN 'high' THEN 2
			WHEN 'medium' THEN 1
			ELSE 0
		END DESC, id ASC
	`, patternColumns)

	rows, err := q.QueryContext(ctx, query, includeDisabled)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.Pattern
	for rows.Next() {
		pattern, scanErr := scanPattern(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", scanErr)
		}
		patterns = append(patterns, *pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	return patterns, nil
}

// DeletePattern removes a pattern by ID.
func (s *SQLiteStorage) DeletePattern(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.deletePatternIn(ctx, s.db, id)
}

func (s *SQLiteStorage) deletePatternIn(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pattern %s", common.ErrNotFound, id)
	}

	return nil
}

// SetPatternEnabled flips a pattern's enabled flag.
func (s *SQLiteStorage) SetPatternEnabled(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.setPatternEnabledIn(ctx, s.db, id, enabled)
}

func (s *SQLiteStorage) setPatternEnabledIn(ctx context.Context, q querier, id string, enabled bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE patterns SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pattern %s", common.ErrNotFound, id)
	}

	return nil
}

// IncrementPatternUseCount bumps the pattern's use counter.
func (s *SQLiteStorage) IncrementPatternUseCount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.incrementPatternUseCountIn(ctx, s.db, id)
}

func (s *SQLiteStorage) incrementPatternUseCountIn(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE patterns SET use_count = use_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment use count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pattern %s", common.ErrNotFound, id)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*model.Pattern, error) {
	var pattern model.Pattern
	var keywordsJSON string

	err := row.Scan(
		&pattern.ID, &pattern.Trigger, &pattern.Type, &pattern.Template,
		&pattern.Priority, &keywordsJSON, &pattern.BaseConfidence,
		&pattern.MinConfidence, &pattern.RequiresContext, &pattern.Enabled,
		&pattern.UseCount, &pattern.CreatedAt, &pattern.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(keywordsJSON), &pattern.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}

	return &pattern, nil
}
