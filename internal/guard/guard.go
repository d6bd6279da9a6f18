// Package guard enforces per-user response rate limits and loop protection.
package guard

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
)

// Default limits, overridable through Config.
const (
	DefaultMaxResponses  = 3
	DefaultWindow        = time.Hour
	DefaultLoopThreshold = 2
)

// shardCount is fixed so user-to-shard assignment never changes at runtime.
const shardCount = 32

// Config tunes the guard.
type Config struct {
	// MaxResponses is the number of automatic responses allowed per user
	// inside Window. Premium users are never limited.
	MaxResponses int
	// Window is the sliding window the limit applies to.
	Window time.Duration
	// LoopThreshold is the number of consecutive automated messages at the
	// tail of a conversation that refuses further automatic responses.
	LoopThreshold int
}

type shard struct {
	windows map[string][]time.Time
	mu      sync.Mutex
}

// Guard tracks per-user sliding windows of sent responses. Users are spread
// over a fixed set of shards so unrelated users never contend on one lock.
type Guard struct {
	shards        [shardCount]*shard
	maxResponses  int
	window        time.Duration
	loopThreshold int
}

// New creates a guard, filling zero config values with defaults.
func New(cfg Config) (*Guard, error) {
	if cfg.MaxResponses == 0 {
		cfg.MaxResponses = DefaultMaxResponses
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.LoopThreshold == 0 {
		cfg.LoopThreshold = DefaultLoopThreshold
	}

	if cfg.MaxResponses < 1 {
		return nil, fmt.Errorf("%w: max responses must be positive", common.ErrInvalidConfig)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", common.ErrInvalidConfig)
	}
	if cfg.LoopThreshold < 1 {
		return nil, fmt.Errorf("%w: loop threshold must be positive", common.ErrInvalidConfig)
	}

	g := &Guard{
		maxResponses:  cfg.MaxResponses,
		window:        cfg.Window,
		loopThreshold: cfg.LoopThreshold,
	}
	for i := range g.shards {
		g.shards[i] = &shard{windows: make(map[string][]time.Time)}
	}

	return g, nil
}

// Allow reports whether one more automatic response to the user is inside the
// rate limit. Premium users are always allowed. Allow never mutates state;
// call RecordResponse after the response is actually sent.
func (g *Guard) Allow(userID string, premium bool, now time.Time) (bool, error) {
	if premium {
		return true, nil
	}

	s := g.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := pruneBefore(s.windows[userID], now.Add(-g.window))
	s.windows[userID] = recent

	return len(recent) < g.maxResponses, nil
}

// RecordResponse counts one sent response against the user's window.
func (g *Guard) RecordResponse(userID string, now time.Time) error {
	s := g.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[userID] = append(pruneBefore(s.windows[userID], now.Add(-g.window)), now)

	return nil
}

// Seed primes a user's window from externally tracked timestamps. It only
// applies when the guard has no entry for the user, so a live window is
// never overwritten by stale caller state.
func (g *Guard) Seed(userID string, sent []time.Time) error {
	if len(sent) == 0 {
		return nil
	}

	s := g.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.windows[userID]; exists {
		return nil
	}

	window := make([]time.Time, len(sent))
	copy(window, sent)
	s.windows[userID] = window

	return nil
}

// Remaining reports how many responses the user has left in the current
// window. Premium users always have the full allowance.
func (g *Guard) Remaining(userID string, premium bool, now time.Time) int {
	if premium {
		return g.maxResponses
	}

	s := g.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := pruneBefore(s.windows[userID], now.Add(-g.window))
	s.windows[userID] = recent

	if len(recent) >= g.maxResponses {
		return 0
	}
	return g.maxResponses - len(recent)
}

// LoopDetected reports whether the conversation tail is an automated loop.
// History is ordered most recent first.
func (g *Guard) LoopDetected(history []model.Origin) bool {
	return autoStreak(history) >= g.loopThreshold
}

// autoStreak counts consecutive non-user messages at the head of a most
// recent first history.
func autoStreak(history []model.Origin) int {
	streak := 0
	for _, origin := range history {
		if origin == model.OriginUser {
			break
		}
		streak++
	}
	return streak
}

func (g *Guard) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return g.shards[h.Sum32()%shardCount]
}

// pruneBefore drops timestamps older than the cutoff, preserving order.
func pruneBefore(window []time.Time, cutoff time.Time) []time.Time {
	if len(window) == 0 {
		return window
	}

	kept := window[:0]
	for _, ts := range window {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
