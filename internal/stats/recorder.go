// Package stats records decision outcomes and aggregates acceptance feedback.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/service"
)

// Sink is the slice of the persistence layer the recorder writes to and
// reads aggregates from.
type Sink interface {
	SaveOutcomes(ctx context.Context, records []model.StatRecord) error
	ListOutcomes(ctx context.Context, filter service.OutcomeFilter) ([]model.StatRecord, error)
	AttachFeedback(ctx context.Context, recordID string, accepted bool, note string) error
	AcceptanceRate(ctx context.Context, patternID string, since *time.Time) (*float64, error)
	PatternAcceptanceRates(ctx context.Context, since *time.Time) ([]service.PatternAcceptance, error)
}

// Config holds configuration options for the recorder.
type Config struct {
	// BufferSize caps how many records can wait for the flush goroutine.
	// Record drops instead of blocking once the buffer is full.
	BufferSize int
	// BatchSize is the most records written to the sink in one call.
	BatchSize int
	// FlushInterval is how long buffered records wait before a flush.
	FlushInterval time.Duration
	// Retry controls how stubbornly a failed flush is retried.
	Retry service.RetryOptions
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:    256,
		BatchSize:     50,
		FlushInterval: 5 * time.Second,
	}
}

// Recorder buffers outcome records and flushes them to the sink in batches.
// Recording never blocks the decision path: when the buffer is full the
// record is dropped and counted.
type Recorder struct {
	sink          Sink
	records       chan model.StatRecord
	stopCh        chan struct{}
	doneCh        chan struct{}
	retry         service.RetryOptions
	batchSize     int
	flushInterval time.Duration
	dropped       atomic.Int64
}

// NewRecorder creates a recorder and starts its flush goroutine.
func NewRecorder(sink Sink, cfg Config) *Recorder {
	defaults := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}

	r := &Recorder{
		sink:          sink,
		records:       make(chan model.StatRecord, cfg.BufferSize),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		retry:         cfg.Retry,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
	}

	go r.flushLoop()

	return r
}

// Record queues one outcome for persistence. It never blocks; a full buffer
// or a closed recorder drops the record and counts the loss.
func (r *Recorder) Record(record model.StatRecord) {
	select {
	case <-r.stopCh:
		r.drop(record, "recorder closed")
		return
	default:
	}

	select {
	case r.records <- record:
	default:
		r.drop(record, "buffer full")
	}
}

// Dropped returns how many records have been lost since the recorder started.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops the flush goroutine after draining everything still buffered.
// Records the final flush could not persist are reported as a sink failure.
func (r *Recorder) Close() error {
	select {
	case <-r.stopCh:
		return nil
	default:
	}

	before := r.dropped.Load()
	close(r.stopCh)
	<-r.doneCh

	if lost := r.dropped.Load() - before; lost > 0 {
		return fmt.Errorf("%w: %d records lost at shutdown", common.ErrSinkUnavailable, lost)
	}
	return nil
}

// AttachFeedback forwards a review verdict to the sink.
func (r *Recorder) AttachFeedback(ctx context.Context, recordID string, accepted bool, note string) error {
	return r.sink.AttachFeedback(ctx, recordID, accepted, note)
}

// AcceptanceRate forwards the per-pattern acceptance query to the sink.
func (r *Recorder) AcceptanceRate(ctx context.Context, patternID string, since *time.Time) (*float64, error) {
	return r.sink.AcceptanceRate(ctx, patternID, since)
}

// Summary aggregates decision outcomes recorded since the given time.
// A nil since covers everything.
type Summary struct {
	Since       *time.Time
	OverallRate *float64
	PerPattern  []service.PatternAcceptance
	Total       int
	Sent        int
	Deferred    int
	Reviewed    int
	Accepted    int
}

// Summarize builds an outcome summary from the sink. Buffered records that
// have not flushed yet are not included.
func (r *Recorder) Summarize(ctx context.Context, since *time.Time) (*Summary, error) {
	outcomes, err := r.sink.ListOutcomes(ctx, service.OutcomeFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}

	summary := &Summary{Since: since, Total: len(outcomes)}
	for i := range outcomes {
		record := &outcomes[i]
		if record.WasSent {
			summary.Sent++
		} else {
			summary.Deferred++
		}
		if record.Reviewed() {
			summary.Reviewed++
			if *record.UserAccepted {
				summary.Accepted++
			}
		}
	}

	summary.OverallRate, err = r.sink.AcceptanceRate(ctx, "", since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute acceptance rate: %w", err)
	}

	summary.PerPattern, err = r.sink.PatternAcceptanceRates(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pattern rates: %w", err)
	}

	return summary, nil
}

func (r *Recorder) drop(record model.StatRecord, reason string) {
	r.dropped.Add(1)
	slog.Warn("Dropping outcome record",
		"reason", reason,
		"record_id", record.ID,
		"pattern", record.PatternID,
		"total_dropped", r.dropped.Load())
}

// flushLoop batches buffered records and writes them out on a timer, when a
// batch fills, and once more on shutdown.
func (r *Recorder) flushLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	pending := make([]model.StatRecord, 0, r.batchSize)

	for {
		select {
		case record := <-r.records:
			pending = append(pending, record)
			if len(pending) >= r.batchSize {
				pending = r.flush(pending)
			}
		case <-ticker.C:
			pending = r.flush(pending)
		case <-r.stopCh:
			pending = append(pending, r.drain()...)
			r.flush(pending)
			return
		}
	}
}

// drain empties whatever is still buffered without blocking.
func (r *Recorder) drain() []model.StatRecord {
	var rest []model.StatRecord
	for {
		select {
		case record := <-r.records:
			rest = append(rest, record)
		default:
			return rest
		}
	}
}

// flush writes pending records to the sink with retries. IDs are unique and
// replayed writes are ignored downstream, so a retried batch cannot
// double-count. Returns the reusable empty slice on success.
func (r *Recorder) flush(pending []model.StatRecord) []model.StatRecord {
	if len(pending) == 0 {
		return pending
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := common.WithRetry(ctx, func() error {
		return r.sink.SaveOutcomes(ctx, pending)
	}, r.retry)
	if err != nil {
		r.dropped.Add(int64(len(pending)))
		common.LogError(fmt.Errorf("%w: %v", common.ErrSinkUnavailable, err),
			"Failed to flush outcome records", common.Fields{
				"count": len(pending),
			})
		return pending[:0]
	}

	slog.Debug("Flushed outcome records", "count", len(pending))
	return pending[:0]
}
