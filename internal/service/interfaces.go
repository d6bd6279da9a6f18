// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ripostebot/riposte/internal/model"
)

// OutcomeFilter defines filtering options for outcome queries.
type OutcomeFilter struct {
	Since     *time.Time
	PatternID string
	UserID    string
	Limit     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Pattern operations
	SavePattern(ctx context.Context, pattern *model.Pattern) error
	GetPattern(ctx context.Context, id string) (*model.Pattern, error)
	ListPatterns(ctx context.Context, includeDisabled bool) ([]model.Pattern, error)
	DeletePattern(ctx context.Context, id string) error
	SetPatternEnabled(ctx context.Context, id string, enabled bool) error
	IncrementPatternUseCount(ctx context.Context, id string) error

	// Outcome operations
	SaveOutcomes(ctx context.Context, records []model.StatRecord) error
	GetOutcome(ctx context.Context, id string) (*model.StatRecord, error)
	ListOutcomes(ctx context.Context, filter OutcomeFilter) ([]model.StatRecord, error)
	ListUnreviewedOutcomes(ctx context.Context, limit int) ([]model.StatRecord, error)
	AttachFeedback(ctx context.Context, recordID string, accepted bool, note string) error
	AcceptanceRate(ctx context.Context, patternID string, since *time.Time) (*float64, error)
	PatternAcceptanceRates(ctx context.Context, since *time.Time) ([]PatternAcceptance, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// PatternAcceptance aggregates reviewed outcomes for one pattern.
// Rate is nil when the pattern has no reviewed outcomes yet.
type PatternAcceptance struct {
	Rate      *float64
	PatternID string
	Sent      int
	Reviewed  int
	Accepted  int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
