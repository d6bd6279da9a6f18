package engine

import (
	"sync"
	"time"

	"github.com/ripostebot/riposte/internal/model"
)

// MockGuard is a test implementation of the Guard interface with settable
// outcomes and call recording.
type MockGuard struct {
	recordedResponses map[string][]time.Time
	seeded            map[string][]time.Time
	allowErr          error
	seedErr           error
	recordErr         error
	allowCalls        int
	mu                sync.Mutex
	allow             bool
	loopDetected      bool
}

// NewMockGuard creates a mock guard that allows everything.
func NewMockGuard() *MockGuard {
	return &MockGuard{
		allow:             true,
		recordedResponses: make(map[string][]time.Time),
		seeded:            make(map[string][]time.Time),
	}
}

// Allow returns the configured verdict or error.
func (m *MockGuard) Allow(_ string, _ bool, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowCalls++
	if m.allowErr != nil {
		return false, m.allowErr
	}
	return m.allow, nil
}

// RecordResponse records the call for later verification.
func (m *MockGuard) RecordResponse(userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.recordedResponses[userID] = append(m.recordedResponses[userID], now)
	return nil
}

// Seed records the seeded timestamps for later verification.
func (m *MockGuard) Seed(userID string, sent []time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seedErr != nil {
		return m.seedErr
	}
	if len(sent) > 0 {
		m.seeded[userID] = append([]time.Time(nil), sent...)
	}
	return nil
}

// LoopDetected returns the configured verdict.
func (m *MockGuard) LoopDetected(_ []model.Origin) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loopDetected
}

// SetAllow configures the rate limit verdict.
func (m *MockGuard) SetAllow(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allow = allow
}

// SetAllowError makes Allow fail, simulating an unavailable guard backend.
func (m *MockGuard) SetAllowError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowErr = err
}

// SetSeedError makes Seed fail.
func (m *MockGuard) SetSeedError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seedErr = err
}

// SetLoopDetected configures the loop verdict.
func (m *MockGuard) SetLoopDetected(detected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loopDetected = detected
}

// AllowCallCount returns how many times Allow was queried.
func (m *MockGuard) AllowCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowCalls
}

// RecordedResponses returns the response timestamps recorded for a user.
func (m *MockGuard) RecordedResponses(userID string) []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.recordedResponses[userID]...)
}

// SeededWith returns the timestamps a user's window was seeded from.
func (m *MockGuard) SeededWith(userID string) []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.seeded[userID]...)
}
