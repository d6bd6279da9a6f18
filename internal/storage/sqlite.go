package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/service"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// SQLiteStorage keeps patterns and outcomes in a single SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// querier abstracts *sql.DB and *sql.Tx so every query runs unchanged inside
// and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteDSN adds the pragmas every connection needs: WAL journaling, and a
// busy timeout so brief lock contention waits instead of erroring.
func sqliteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
// Call Migrate before using the returned storage.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY between writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx opens a transaction whose view of storage mirrors the parent's.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTxn{tx: tx, owner: s}, nil
}

var (
	errTxnMigrate = errors.New("schema migrations need a direct connection, not a transaction")
	errTxnNested  = errors.New("sqlite storage does not support nested transactions")
	errTxnClose   = errors.New("end a transaction with Commit or Rollback, not Close")
)

// sqliteTxn satisfies service.Transaction by routing every storage call
// through the transaction's connection.
type sqliteTxn struct {
	tx    *sql.Tx
	owner *SQLiteStorage
}

func (txn *sqliteTxn) Commit() error {
	return txn.tx.Commit()
}

func (txn *sqliteTxn) Rollback() error {
	return txn.tx.Rollback()
}

func (txn *sqliteTxn) SavePattern(ctx context.Context, pattern *model.Pattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}
	return txn.owner.savePatternIn(ctx, txn.tx, pattern)
}

func (txn *sqliteTxn) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return txn.owner.getPatternIn(ctx, txn.tx, id)
}

func (txn *sqliteTxn) ListPatterns(ctx context.Context, includeDisabled bool) ([]model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return txn.owner.listPatternsIn(ctx, txn.tx, includeDisabled)
}

func (txn *sqliteTxn) DeletePattern(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return txn.owner.deletePatternIn(ctx, txn.tx, id)
}

func (txn *sqliteTxn) SetPatternEnabled(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return txn.owner.setPatternEnabledIn(ctx, txn.tx, id, enabled)
}

func (txn *sqliteTxn) IncrementPatternUseCount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return txn.owner.incrementPatternUseCountIn(ctx, txn.tx, id)
}

func (txn *sqliteTxn) SaveOutcomes(ctx context.Context, records []model.StatRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOutcomes(records); err != nil {
		return err
	}
	return txn.owner.saveOutcomesIn(ctx, txn.tx, records)
}

func (txn *sqliteTxn) GetOutcome(ctx context.Context, id string) (*model.StatRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return txn.owner.getOutcomeIn(ctx, txn.tx, id)
}

func (txn *sqliteTxn) ListOutcomes(ctx context.Context, filter service.OutcomeFilter) ([]model.StatRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return txn.owner.listOutcomesIn(ctx, txn.tx, filter)
}

func (txn *sqliteTxn) ListUnreviewedOutcomes(ctx context.Context, limit int) ([]model.StatRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	return txn.owner.listUnreviewedOutcomesIn(ctx, txn.tx, limit)
}

func (txn *sqliteTxn) AttachFeedback(ctx context.Context, recordID string, accepted bool, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(recordID, "recordID"); err != nil {
		return err
	}
	return txn.owner.attachFeedbackIn(ctx, txn.tx, recordID, accepted, note)
}

func (txn *sqliteTxn) AcceptanceRate(ctx context.Context, patternID string, since *time.Time) (*float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return txn.owner.acceptanceRateIn(ctx, txn.tx, patternID, since)
}

func (txn *sqliteTxn) PatternAcceptanceRates(ctx context.Context, since *time.Time) ([]service.PatternAcceptance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return txn.owner.patternAcceptanceRatesIn(ctx, txn.tx, since)
}

func (txn *sqliteTxn) Migrate(_ context.Context) error {
	return errTxnMigrate
}

func (txn *sqliteTxn) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, errTxnNested
}

func (txn *sqliteTxn) Close() error {
	return errTxnClose
}
