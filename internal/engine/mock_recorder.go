package engine

import (
	"sync"

	"github.com/ripostebot/riposte/internal/model"
)

// MockRecorder is a test implementation of the Recorder interface that keeps
// records in memory.
type MockRecorder struct {
	records []model.StatRecord
	mu      sync.Mutex
}

// NewMockRecorder creates an empty mock recorder.
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

// Record stores the record.
func (m *MockRecorder) Record(record model.StatRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

// Records returns a copy of everything recorded so far.
func (m *MockRecorder) Records() []model.StatRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StatRecord(nil), m.records...)
}

// LastRecord returns the most recent record, if any.
func (m *MockRecorder) LastRecord() (model.StatRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return model.StatRecord{}, false
	}
	return m.records[len(m.records)-1], true
}

// Reset clears all recorded outcomes.
func (m *MockRecorder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}
