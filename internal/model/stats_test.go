package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStatRecord(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	record := NewStatRecord("greeting-hello", "user-1", ts, true)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "greeting-hello", record.PatternID)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, ts, record.Timestamp)
	assert.True(t, record.WasSent)
	assert.Nil(t, record.UserAccepted)

	other := NewStatRecord("greeting-hello", "user-1", ts, true)
	assert.NotEqual(t, record.ID, other.ID, "every record gets its own ID")
}

func TestStatRecord_Reviewed(t *testing.T) {
	record := NewStatRecord("", "user-1", time.Now(), false)
	assert.False(t, record.Reviewed())

	accepted := false
	record.UserAccepted = &accepted
	assert.True(t, record.Reviewed(), "a rejection still counts as reviewed")
}
