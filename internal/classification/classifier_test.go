package classification

import (
	"context"
	"strings"
	"testing"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSnapshot(t *testing.T) *registry.Snapshot {
	t.Helper()
	r, err := registry.NewWithPatterns(DefaultPatterns())
	require.NoError(t, err)
	return r.Snapshot()
}

func TestNewClassifier(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "zero config gets defaults",
			cfg:     Config{},
			wantErr: false,
		},
		{
			name:    "explicit values accepted",
			cfg:     Config{ConfidenceFloor: 0.4, KeywordBonus: 0.1, MaxMessageLength: 280},
			wantErr: false,
		},
		{
			name:    "floor above one",
			cfg:     Config{ConfidenceFloor: 1.5},
			wantErr: true,
			errMsg:  "confidence floor",
		},
		{
			name:    "negative bonus",
			cfg:     Config{KeywordBonus: -0.1},
			wantErr: true,
			errMsg:  "keyword bonus",
		},
		{
			name:    "negative max length",
			cfg:     Config{MaxMessageLength: -1},
			wantErr: true,
			errMsg:  "max message length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClassifier(tt.cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, c)
			} else {
				require.NoError(t, err)
				require.NotNil(t, c)
			}
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	snap := defaultSnapshot(t)
	c, err := NewClassifier(Config{})
	require.NoError(t, err)

	tests := []struct {
		name           string
		text           string
		wantPatternID  string
		wantType       model.MessageType
		wantSentiment  model.Sentiment
		wantConfidence float64
		wantUrgency    bool
	}{
		{
			name:           "greeting with keyword boost",
			text:           "Hello!",
			wantType:       model.TypeGreeting,
			wantConfidence: 0.90, // 0.85 base + hello keyword
			wantPatternID:  "greeting-hello",
			wantSentiment:  model.SentimentNeutral,
		},
		{
			name:           "shouted plea for help",
			text:           "HELP ASAP!!",
			wantType:       model.TypeUrgent,
			wantConfidence: 0.95, // 0.90 base + asap keyword
			wantPatternID:  "urgent-help",
			wantUrgency:    true,
		},
		{
			name:           "open question stays below its pattern minimum",
			text:           "Why is Ethereum important?",
			wantType:       model.TypeQuestion,
			wantConfidence: 0.60,
			wantPatternID:  "question-open",
			wantSentiment:  model.SentimentNeutral,
		},
		{
			name:           "unmatched text falls back to statement",
			text:           "The sky was purple over the bay tonight.",
			wantType:       model.TypeStatement,
			wantConfidence: DefaultConfidenceFloor,
			wantSentiment:  model.SentimentNeutral,
		},
		{
			name:           "case insensitive trigger",
			text:           "hELLo friend",
			wantType:       model.TypeGreeting,
			wantConfidence: 0.90,
			wantPatternID:  "greeting-hello",
		},
		{
			name:           "slash command",
			text:           "/start please",
			wantType:       model.TypeCommand,
			wantConfidence: 0.95,
			wantPatternID:  "command-slash",
		},
		{
			name:           "request with polite keyword",
			text:           "Could you please check this for me",
			wantType:       model.TypeRequest,
			wantConfidence: 0.75, // 0.70 base + please keyword
			wantPatternID:  "request-can-you",
		},
		{
			name:           "gratitude reads positive",
			text:           "Thanks, that was perfect",
			wantType:       model.TypeFeedback,
			wantConfidence: 0.85,
			wantPatternID:  "feedback-thanks",
			wantSentiment:  model.SentimentPositive,
		},
		{
			name:           "complaint reads negative",
			text:           "The export is broken and the report looks terrible",
			wantType:       model.TypeFeedback,
			wantConfidence: 0.90, // 0.80 base + broken keyword
			wantPatternID:  "feedback-problem",
			wantSentiment:  model.SentimentNegative,
		},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, classifyErr := c.Classify(ctx, tt.text, snap)
			require.NoError(t, classifyErr)

			assert.Equal(t, tt.text, got.RawText)
			assert.Equal(t, tt.wantType, got.Type)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 0.001)
			assert.Equal(t, tt.wantPatternID, got.PatternID)
			assert.Equal(t, tt.wantUrgency, got.HasUrgencyMarkers)
			if tt.wantSentiment != "" {
				assert.Equal(t, tt.wantSentiment, got.Sentiment)
			}
		})
	}
}

func TestClassifier_Classify_InvalidInput(t *testing.T) {
	snap := defaultSnapshot(t)
	c, err := NewClassifier(Config{MaxMessageLength: 100})
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace only", text: "   \t\n"},
		{name: "invalid utf8", text: "hello \xff\xfe world"},
		{name: "over length limit", text: strings.Repeat("a", 101)},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, classifyErr := c.Classify(ctx, tt.text, snap)
			require.Error(t, classifyErr)
			assert.ErrorIs(t, classifyErr, common.ErrInvalidInput)
		})
	}
}

func TestClassifier_Classify_LengthLimitCountsRunes(t *testing.T) {
	snap := defaultSnapshot(t)
	c, err := NewClassifier(Config{MaxMessageLength: 10})
	require.NoError(t, err)

	// 10 multibyte runes are within the limit even though the byte count is not
	_, err = c.Classify(context.Background(), strings.Repeat("é", 10), snap)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), strings.Repeat("é", 11), snap)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestClassifier_KeywordBonusIsMonotonic(t *testing.T) {
	patterns := []model.Pattern{
		{
			ID:             "order-help",
			Trigger:        `\border\b`,
			Type:           model.TypeQuestion,
			Template:       "Checking your order now.",
			Priority:       model.PriorityMedium,
			Keywords:       []string{"refund", "missing", "late", "invoice", "charge"},
			BaseConfidence: 0.90,
			MinConfidence:  0.5,
			Enabled:        true,
		},
	}
	r, err := registry.NewWithPatterns(patterns)
	require.NoError(t, err)
	snap := r.Snapshot()

	c, err := NewClassifier(Config{})
	require.NoError(t, err)

	texts := []string{
		"my order",
		"my order refund",
		"my order refund is missing",
		"my order refund is missing and late",
		"my order refund is missing, late, and the invoice shows a double charge",
	}

	ctx := context.Background()
	previous := 0.0
	for _, text := range texts {
		got, classifyErr := c.Classify(ctx, text, snap)
		require.NoError(t, classifyErr)

		assert.GreaterOrEqual(t, got.Confidence, previous, "confidence must not drop as keywords accumulate: %q", text)
		assert.LessOrEqual(t, got.Confidence, 1.0, "confidence must stay clamped at 1.0: %q", text)
		previous = got.Confidence
	}

	// All five keywords present pushes past the cap and clamps
	got, err := c.Classify(ctx, texts[len(texts)-1], snap)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.Confidence, 0.001)
	assert.Len(t, got.MatchedKeywords, 5)
}

func TestClassifier_Classify_Deterministic(t *testing.T) {
	snap := defaultSnapshot(t)
	c, err := NewClassifier(Config{})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.Classify(ctx, "Hey, could you help me with my order status?", snap)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, classifyErr := c.Classify(ctx, "Hey, could you help me with my order status?", snap)
		require.NoError(t, classifyErr)
		assert.Equal(t, first, again)
	}
}

func TestClassifier_DisabledPatternsAreSkipped(t *testing.T) {
	patterns := DefaultPatterns()
	for i := range patterns {
		if patterns[i].ID == "greeting-hello" {
			patterns[i].Enabled = false
		}
	}
	r, err := registry.NewWithPatterns(patterns)
	require.NoError(t, err)

	c, err := NewClassifier(Config{})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "Hello!", snapshotOf(t, r))
	require.NoError(t, err)

	assert.Equal(t, model.TypeStatement, got.Type)
	assert.Empty(t, got.PatternID)
}

func snapshotOf(t *testing.T, r *registry.Registry) *registry.Snapshot {
	t.Helper()
	return r.Snapshot()
}

func TestClassifier_EqualConfidenceKeepsHigherPriority(t *testing.T) {
	patterns := []model.Pattern{
		{
			ID:             "b-low-priority",
			Trigger:        `\bping\b`,
			Type:           model.TypeSmallTalk,
			Template:       "pong (low)",
			Priority:       model.PriorityLow,
			BaseConfidence: 0.80,
			MinConfidence:  0.5,
			Enabled:        true,
		},
		{
			ID:             "a-high-priority",
			Trigger:        `\bping\b`,
			Type:           model.TypeCommand,
			Template:       "pong (high)",
			Priority:       model.PriorityHigh,
			BaseConfidence: 0.80,
			MinConfidence:  0.5,
			Enabled:        true,
		},
	}
	r, err := registry.NewWithPatterns(patterns)
	require.NoError(t, err)

	c, err := NewClassifier(Config{})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "ping", r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "a-high-priority", got.PatternID)
	assert.Equal(t, model.TypeCommand, got.Type)
}

func TestDefaultPatterns(t *testing.T) {
	patterns := DefaultPatterns()

	covered := make(map[model.MessageType]bool)
	for _, p := range patterns {
		covered[p.Type] = true
		require.NoError(t, p.Validate(), "default pattern %s must validate", p.ID)
		assert.True(t, p.Enabled, "default pattern %s should start enabled", p.ID)
	}

	for _, mt := range model.AllMessageTypes() {
		assert.True(t, covered[mt], "no default pattern covers %s", mt)
	}

	// The whole set loads into a registry
	_, err := registry.NewWithPatterns(patterns)
	assert.NoError(t, err)
}

func BenchmarkClassifier_Classify(b *testing.B) {
	r, err := registry.NewWithPatterns(DefaultPatterns())
	require.NoError(b, err)
	snap := r.Snapshot()

	c, err := NewClassifier(Config{})
	require.NoError(b, err)

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, classifyErr := c.Classify(ctx, "Hey, could you help me with my order status?", snap)
		if classifyErr != nil {
			b.Fatal(classifyErr)
		}
	}
}
