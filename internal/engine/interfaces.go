package engine

import (
	"context"
	"time"

	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/registry"
)

// Classifier defines the contract for message analysis.
type Classifier interface {
	Classify(ctx context.Context, text string, snap *registry.Snapshot) (model.Classification, error)
}

// Guard defines the contract for rate limiting and loop protection. Seed is
// idempotent: it primes a user's window from caller-tracked state and does
// nothing when the guard already knows the user. Implementations that lose
// their backing state report it by wrapping common.ErrGuardUnavailable; the
// engine refuses to respond on any guard error.
type Guard interface {
	Allow(userID string, premium bool, now time.Time) (bool, error)
	RecordResponse(userID string, now time.Time) error
	Seed(userID string, sent []time.Time) error
	LoopDetected(history []model.Origin) bool
}

// Renderer defines the contract for turning an accepted decision into
// outgoing text.
type Renderer interface {
	Generate(classification model.Classification, user model.UserContext, pattern model.Pattern, now time.Time) (string, error)
	UrgencyAck(classification model.Classification, user model.UserContext, now time.Time) (string, error)
}

// Recorder defines the contract for capturing decision outcomes. Record must
// never block the decision path.
type Recorder interface {
	Record(record model.StatRecord)
}
