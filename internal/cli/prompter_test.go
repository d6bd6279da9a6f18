package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ripostebot/riposte/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(patternID string, wasSent bool) model.StatRecord {
	return model.StatRecord{
		ID:        "rec-1",
		PatternID: patternID,
		UserID:    "user-1",
		Timestamp: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		WasSent:   wasSent,
	}
}

func TestReviewPrompter_ReviewOutcome(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		expectedNote     string
		record           model.StatRecord
		expectedAction   ReviewAction
		expectError      bool
		contextCancelled bool
	}{
		{
			name:           "accept with note",
			record:         testRecord("greeting-hello", true),
			input:          "a\nGreat greeting\n",
			expectedAction: ReviewAccept,
			expectedNote:   "Great greeting",
		},
		{
			name:           "accept without note",
			record:         testRecord("greeting-hello", true),
			input:          "a\n\n",
			expectedAction: ReviewAccept,
		},
		{
			name:           "reject with note",
			record:         testRecord("question-open", true),
			input:          "r\nToo generic\n",
			expectedAction: ReviewReject,
			expectedNote:   "Too generic",
		},
		{
			name:           "skip outcome",
			record:         testRecord("greeting-hello", true),
			input:          "s\n",
			expectedAction: ReviewSkip,
		},
		{
			name:           "quit session",
			record:         testRecord("greeting-hello", true),
			input:          "q\n",
			expectedAction: ReviewQuit,
		},
		{
			name:           "invalid choice then valid",
			record:         testRecord("greeting-hello", true),
			input:          "x\ns\n",
			expectedAction: ReviewSkip,
		},
		{
			name:           "uppercase input accepted",
			record:         testRecord("greeting-hello", true),
			input:          "A\n\n",
			expectedAction: ReviewAccept,
		},
		{
			name:             "context canceled",
			record:           testRecord("greeting-hello", true),
			contextCancelled: true,
			expectError:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			prompter := NewReviewPrompter(strings.NewReader(tt.input), &out)

			ctx := context.Background()
			if tt.contextCancelled {
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(ctx)
				cancel()
			}

			result, err := prompter.ReviewOutcome(ctx, tt.record)

			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedAction, result.Action)
			assert.Equal(t, tt.expectedNote, result.Note)
		})
	}
}

func TestReviewPrompter_DisplaysOutcomeDetails(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("s\n"), &out)

	_, err := prompter.ReviewOutcome(context.Background(), testRecord("greeting-hello", true))
	require.NoError(t, err)

	display := out.String()
	assert.Contains(t, display, "greeting-hello")
	assert.Contains(t, display, "user-1")
	assert.Contains(t, display, "responded automatically")
}

func TestReviewPrompter_DisplaysDeferredOutcome(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("s\n"), &out)

	_, err := prompter.ReviewOutcome(context.Background(), testRecord("", false))
	require.NoError(t, err)

	display := out.String()
	assert.Contains(t, display, "generated reply")
	assert.Contains(t, display, "deferred to the generator")
}

func TestReviewPrompter_SessionStats(t *testing.T) {
	// Two accepts, one reject, one skip, then quit
	input := "a\n\n" + "a\nnice\n" + "r\n\n" + "s\n" + "q\n"

	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader(input), &out)
	ctx := context.Background()

	actions := make([]ReviewAction, 0, 5)
	for i := 0; i < 5; i++ {
		result, err := prompter.ReviewOutcome(ctx, testRecord("greeting-hello", true))
		require.NoError(t, err)
		actions = append(actions, result.Action)
		if result.Action == ReviewQuit {
			break
		}
	}

	assert.Equal(t, []ReviewAction{ReviewAccept, ReviewAccept, ReviewReject, ReviewSkip, ReviewQuit}, actions)

	stats := prompter.SessionStats()
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Skipped)
}

func TestReviewPrompter_ShowCompletion(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("a\n\n"), &out)
	prompter.SetTotal(1)

	_, err := prompter.ReviewOutcome(context.Background(), testRecord("greeting-hello", true))
	require.NoError(t, err)

	prompter.ShowCompletion()

	display := out.String()
	assert.Contains(t, display, "Review Complete")
	assert.Contains(t, display, "Accepted: 1")
}

func TestReviewPrompter_NilStreamsDefaultToStdio(t *testing.T) {
	// Just verifies the constructor doesn't panic with nil streams
	prompter := NewReviewPrompter(nil, nil)
	assert.NotNil(t, prompter)
}
