package model

import (
	"time"

	"github.com/google/uuid"
)

// StatRecord captures the outcome of one decision for later analysis.
// UserAccepted stays nil until a human reviews the outcome.
type StatRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	UserAccepted *bool     `json:"user_accepted,omitempty"`
	ID           string    `json:"id"`
	PatternID    string    `json:"pattern_id,omitempty"`
	UserID       string    `json:"user_id"`
	Feedback     string    `json:"feedback,omitempty"`
	WasSent      bool      `json:"was_sent"`
}

// NewStatRecord builds a record with a fresh unique ID.
func NewStatRecord(patternID, userID string, ts time.Time, wasSent bool) StatRecord {
	return StatRecord{
		ID:        uuid.New().String(),
		PatternID: patternID,
		UserID:    userID,
		Timestamp: ts,
		WasSent:   wasSent,
	}
}

// Reviewed reports whether feedback has been attached to the record.
func (r *StatRecord) Reviewed() bool {
	return r.UserAccepted != nil
}
