package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/service"
)

const outcomeColumns = `id, pattern_id, user_id, timestamp, was_sent, user_accepted, feedback`

// SaveOutcomes stores a batch of outcome records atomically. Replayed IDs are
// ignored so a retried flush cannot double-count.
func (s *SQLiteStorage) SaveOutcomes(ctx context.Context, records []model.StatRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOutcomes(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.saveOutcomesIn(ctx, tx, records); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outcomes: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) saveOutcomesIn(ctx context.Context, q querier, records []model.StatRecord) error {
	query := `
		INSERT INTO outcomes (id, pattern_id, user_id, timestamp, was_sent, user_accepted, feedback)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	for i := range records {
		record := &records[i]
		if _, err := q.ExecContext(ctx, query,
			record.ID, nullIfEmpty(record.PatternID), record.UserID,
			record.Timestamp, record.WasSent, nullableBool(record.UserAccepted),
			nullIfEmpty(record.Feedback),
		); err != nil {
			return fmt.Errorf("failed to save outcome %s: %w", record.ID, err)
		}
	}

	return nil
}

// GetOutcome retrieves a single outcome record by ID.
func (s *SQLiteStorage) GetOutcome(ctx context.Context, id string) (*model.StatRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getOutcomeIn(ctx, s.db, id)
}

func (s *SQLiteStorage) getOutcomeIn(ctx context.Context, q querier, id string) (*model.StatRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM outcomes WHERE id = ?`, outcomeColumns)

	record, err := scanOutcome(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: outcome %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	return record, nil
}

// ListOutcomes retrieves outcome records matching the filter, newest first.
func (s *SQLiteStorage) ListOutcomes(ctx context.Context, filter service.OutcomeFilter) ([]model.StatRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listOutcomesIn(ctx, s.db, filter)
}

func (s *SQLiteStorage) listOutcomesIn(ctx context.Context, q querier, filter service.OutcomeFilter) ([]model.StatRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM outcomes WHERE 1=1`, outcomeColumns)
	args := make([]any, 0, 4)

	if filter.PatternID != "" {
		query += " AND pattern_id = ?"
		args = append(args, filter.PatternID)
	}
	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.Since)
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return queryOutcomes(ctx, q, query, args...)
}

// ListUnreviewedOutcomes retrieves sent outcomes awaiting feedback, oldest
// first so reviews work through the backlog in order.
func (s *SQLiteStorage) ListUnreviewedOutcomes(ctx context.Context, limit int) ([]model.StatRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	return s.listUnreviewedOutcomesIn(ctx, s.db, limit)
}

func (s *SQLiteStorage) listUnreviewedOutcomesIn(ctx context.Context, q querier, limit int) ([]model.StatRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM outcomes
		WHERE user_accepted IS NULL AND was_sent = 1
		ORDER BY timestamp ASC
		LIMIT ?
	`, outcomeColumns)

	return queryOutcomes(ctx, q, query, limit)
}

// AttachFeedback marks an outcome accepted or rejected. Feedback applies
// exactly once; a second attempt fails with ErrAlreadyReviewed.
func (s *SQLiteStorage) AttachFeedback(ctx context.Context, recordID string, accepted bool, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(recordID, "recordID"); err != nil {
		return err
	}
	return s.attachFeedbackIn(ctx, s.db, recordID, accepted, note)
}

func (s *SQLiteStorage) attachFeedbackIn(ctx context.Context, q querier, recordID string, accepted bool, note string) error {
	// The IS NULL guard makes concurrent reviews race-safe: only one wins
	result, err := q.ExecContext(ctx, `
		UPDATE outcomes
		SET user_accepted = ?, feedback = ?, reviewed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_accepted IS NULL
	`, accepted, nullIfEmpty(note), recordID)
	if err != nil {
		return fmt.Errorf("failed to attach feedback: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check feedback result: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outcomes WHERE id = ?`, recordID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check outcome existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: outcome %s", common.ErrNotFound, recordID)
	}
	return fmt.Errorf("%w: outcome %s", common.ErrAlreadyReviewed, recordID)
}

// AcceptanceRate computes the share of reviewed outcomes that users accepted.
// An empty patternID aggregates across all patterns. The rate is nil, not
// zero, when nothing has been reviewed.
func (s *SQLiteStorage) AcceptanceRate(ctx context.Context, patternID string, since *time.Time) (*float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.acceptanceRateIn(ctx, s.db, patternID, since)
}

func (s *SQLiteStorage) acceptanceRateIn(ctx context.Context, q querier, patternID string, since *time.Time) (*float64, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN user_accepted = 1 THEN 1 ELSE 0 END), 0)
		FROM outcomes
		WHERE user_accepted IS NOT NULL
	`
	args := make([]any, 0, 2)

	if patternID != "" {
		query += " AND pattern_id = ?"
		args = append(args, patternID)
	}
	if since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *since)
	}

	var reviewed, accepted int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&reviewed, &accepted); err != nil {
		return nil, fmt.Errorf("failed to compute acceptance rate: %w", err)
	}

	if reviewed == 0 {
		return nil, nil
	}

	rate := float64(accepted) / float64(reviewed)
	return &rate, nil
}

// PatternAcceptanceRates aggregates sent, reviewed, and accepted counts per
// pattern. Outcomes that matched no pattern group under an empty ID.
func (s *SQLiteStorage) PatternAcceptanceRates(ctx context.Context, since *time.Time) ([]service.PatternAcceptance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.patternAcceptanceRatesIn(ctx, s.db, since)
}

func (s *SQLiteStorage) patternAcceptanceRatesIn(ctx context.Context, q querier, since *time.Time) ([]service.PatternAcceptance, error) {
	query := `
		SELECT COALESCE(pattern_id, '') AS pid,
			SUM(CASE WHEN was_sent = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN user_accepted IS NOT NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN user_accepted = 1 THEN 1 ELSE 0 END)
		FROM outcomes
	`
	args := make([]any, 0, 1)

	if since != nil {
		query += " WHERE timestamp >= ?"
		args = append(args, *since)
	}

	query += " GROUP BY pid ORDER BY 2 DESC, pid ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate acceptance rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []service.PatternAcceptance
	for rows.Next() {
		var pa service.PatternAcceptance
		if err := rows.Scan(&pa.PatternID, &pa.Sent, &pa.Reviewed, &pa.Accepted); err != nil {
			return nil, fmt.Errorf("failed to scan acceptance row: %w", err)
		}
		if pa.Reviewed > 0 {
			rate := float64(pa.Accepted) / float64(pa.Reviewed)
			pa.Rate = &rate
		}
		results = append(results, pa)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating acceptance rows: %w", err)
	}

	return results, nil
}

func queryOutcomes(ctx context.Context, q querier, query string, args ...any) ([]model.StatRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.StatRecord
	for rows.Next() {
		record, scanErr := scanOutcome(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", scanErr)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}

	return records, nil
}

func scanOutcome(row rowScanner) (*model.StatRecord, error) {
	var record model.StatRecord
	var patternID, feedback sql.NullString
	var accepted sql.NullBool

	err := row.Scan(
		&record.ID, &patternID, &record.UserID, &record.Timestamp,
		&record.WasSent, &accepted, &feedback,
	)
	if err != nil {
		return nil, err
	}

	record.PatternID = patternID.String
	record.Feedback = feedback.String
	if accepted.Valid {
		record.UserAccepted = &accepted.Bool
	}

	return &record, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
