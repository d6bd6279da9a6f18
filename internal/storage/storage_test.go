package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testPattern(id string, priority model.Priority) model.Pattern {
	return model.Pattern{
		ID:             id,
		Trigger:        `\bhello\b`,
		Type:           model.TypeGreeting,
		Template:       "Hi, {first_name|there}!",
		Priority:       priority,
		Keywords:       []string{"hello", "hey"},
		BaseConfidence: 0.85,
		MinConfidence:  0.5,
		Enabled:        true,
	}
}

func testOutcome(patternID, userID string, ts time.Time, wasSent bool) model.StatRecord {
	return model.StatRecord{
		ID:        uuid.New().String(),
		PatternID: patternID,
		UserID:    userID,
		Timestamp: ts,
		WasSent:   wasSent,
	}
}

func TestSQLiteStorage_SavePattern(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("save and read back", func(t *testing.T) {
		pattern := testPattern("greeting-hello", model.PriorityImmediate)
		require.NoError(t, store.SavePattern(ctx, &pattern))

		got, err := store.GetPattern(ctx, "greeting-hello")
		require.NoError(t, err)

		assert.Equal(t, pattern.ID, got.ID)
		assert.Equal(t, pattern.Trigger, got.Trigger)
		assert.Equal(t, pattern.Type, got.Type)
		assert.Equal(t, pattern.Template, got.Template)
		assert.Equal(t, pattern.Priority, got.Priority)
		assert.Equal(t, pattern.Keywords, got.Keywords)
		assert.InDelta(t, pattern.BaseConfidence, got.BaseConfidence, 0.001)
		assert.InDelta(t, pattern.MinConfidence, got.MinConfidence, 0.001)
		assert.True(t, got.Enabled)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("update in place keeps use count", func(t *testing.T) {
		require.NoError(t, store.IncrementPatternUseCount(ctx, "greeting-hello"))

		updated := testPattern("greeting-hello", model.PriorityLow)
		updated.Template = "Hello again!"
		require.NoError(t, store.SavePattern(ctx, &updated))

		got, err := store.GetPattern(ctx, "greeting-hello")
		require.NoError(t, err)
		assert.Equal(t, "Hello again!", got.Template)
		assert.Equal(t, model.PriorityLow, got.Priority)
		assert.Equal(t, 1, got.UseCount)
	})

	t.Run("invalid pattern rejected", func(t *testing.T) {
		bad := testPattern("bad-pattern", model.PriorityLow)
		bad.Trigger = `[unclosed`

		err := store.SavePattern(ctx, &bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("nil pattern rejected", func(t *testing.T) {
		err := store.SavePattern(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}

func TestSQLiteStorage_GetPattern_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetPattern(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_ListPatterns(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seed := []model.Pattern{
		testPattern("b-medium", model.PriorityMedium),
		testPattern("a-low", model.PriorityLow),
		testPattern("c-immediate", model.PriorityImmediate),
		testPattern("a-medium", model.PriorityMedium),
	}
	for i := range seed {
		require.NoError(t, store.SavePattern(ctx, &seed[i]))
	}
	require.NoError(t, store.SetPatternEnabled(ctx, "a-low", false))

	t.Run("enabled only, match order", func(t *testing.T) {
		patterns, err := store.ListPatterns(ctx, false)
		require.NoError(t, err)

		var ids []string
		for _, p := range patterns {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"c-immediate", "a-medium", "b-medium"}, ids)
	})

	t.Run("include disabled", func(t *testing.T) {
		patterns, err := store.ListPatterns(ctx, true)
		require.NoError(t, err)
		assert.Len(t, patterns, 4)
	})
}

func TestSQLiteStorage_DeletePattern(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	pattern := testPattern("greeting-hello", model.PriorityHigh)
	require.NoError(t, store.SavePattern(ctx, &pattern))

	require.NoError(t, store.DeletePattern(ctx, "greeting-hello"))

	_, err := store.GetPattern(ctx, "greeting-hello")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.DeletePattern(ctx, "greeting-hello")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_SetPatternEnabled(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	pattern := testPattern("greeting-hello", model.PriorityHigh)
	require.NoError(t, store.SavePattern(ctx, &pattern))

	require.NoError(t, store.SetPatternEnabled(ctx, "greeting-hello", false))

	got, err := store.GetPattern(ctx, "greeting-hello")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	assert.ErrorIs(t, store.SetPatternEnabled(ctx, "missing", true), common.ErrNotFound)
}

func TestSQLiteStorage_IncrementPatternUseCount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	pattern := testPattern("greeting-hello", model.PriorityHigh)
	require.NoError(t, store.SavePattern(ctx, &pattern))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementPatternUseCount(ctx, "greeting-hello"))
	}

	got, err := store.GetPattern(ctx, "greeting-hello")
	require.NoError(t, err)
	assert.Equal(t, 3, got.UseCount)

	assert.ErrorIs(t, store.IncrementPatternUseCount(ctx, "missing"), common.ErrNotFound)
}

func TestSQLiteStorage_SaveOutcomes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []model.StatRecord{
		testOutcome("greeting-hello", "user-1", now, true),
		testOutcome("", "user-2", now.Add(time.Minute), false),
	}

	require.NoError(t, store.SaveOutcomes(ctx, records))

	t.Run("read back preserves optionals", func(t *testing.T) {
		got, err := store.GetOutcome(ctx, records[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "greeting-hello", got.PatternID)
		assert.Equal(t, "user-1", got.UserID)
		assert.True(t, got.WasSent)
		assert.Nil(t, got.UserAccepted)
		assert.Empty(t, got.Feedback)

		got, err = store.GetOutcome(ctx, records[1].ID)
		require.NoError(t, err)
		assert.Empty(t, got.PatternID)
		assert.False(t, got.WasSent)
	})

	t.Run("replayed batch does not duplicate", func(t *testing.T) {
		require.NoError(t, store.SaveOutcomes(ctx, records))

		all, err := store.ListOutcomes(ctx, service.OutcomeFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		err := store.SaveOutcomes(ctx, []model.StatRecord{})
		assert.ErrorIs(t, err, ErrEmptySlice)
	})

	t.Run("record without user rejected", func(t *testing.T) {
		bad := testOutcome("p", "", now, true)
		err := store.SaveOutcomes(ctx, []model.StatRecord{bad})
		assert.ErrorIs(t, err, ErrInvalidOutcome)
	})
}

func TestSQLiteStorage_ListOutcomes_Filters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []model.StatRecord{
		testOutcome("greeting-hello", "user-1", base, true),
		testOutcome("greeting-hello", "user-2", base.Add(time.Hour), true),
		testOutcome("question-open", "user-1", base.Add(2*time.Hour), false),
	}
	require.NoError(t, store.SaveOutcomes(ctx, records))

	t.Run("by pattern", func(t *testing.T) {
		got, err := store.ListOutcomes(ctx, service.OutcomeFilter{PatternID: "greeting-hello"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by user", func(t *testing.T) {
		got, err := store.ListOutcomes(ctx, service.OutcomeFilter{UserID: "user-1"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("since cuts older records", func(t *testing.T) {
		since := base.Add(30 * time.Minute)
		got, err := store.ListOutcomes(ctx, service.OutcomeFilter{Since: &since})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("newest first with limit", func(t *testing.T) {
		got, err := store.ListOutcomes(ctx, service.OutcomeFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, records[2].ID, got[0].ID)
	})
}

func TestSQLiteStorage_ListUnreviewedOutcomes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sent1 := testOutcome("greeting-hello", "user-1", base.Add(time.Hour), true)
	sent2 := testOutcome("greeting-hello", "user-2", base, true)
	deferred := testOutcome("", "user-3", base, false)
	require.NoError(t, store.SaveOutcomes(ctx, []model.StatRecord{sent1, sent2, deferred}))

	// Review one of the sent outcomes
	require.NoError(t, store.AttachFeedback(ctx, sent2.ID, true, "helpful"))

	got, err := store.ListUnreviewedOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sent1.ID, got[0].ID)

	_, err = store.ListUnreviewedOutcomes(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSQLiteStorage_AttachFeedback(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := testOutcome("greeting-hello", "user-1", now, true)
	require.NoError(t, store.SaveOutcomes(ctx, []model.StatRecord{record}))

	require.NoError(t, store.AttachFeedback(ctx, record.ID, true, "nailed it"))

	got, err := store.GetOutcome(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserAccepted)
	assert.True(t, *got.UserAccepted)
	assert.Equal(t, "nailed it", got.Feedback)

	// Feedback applies exactly once
	err = store.AttachFeedback(ctx, record.ID, false, "changed my mind")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAlreadyReviewed)

	// Unknown records are reported as missing
	err = store.AttachFeedback(ctx, uuid.New().String(), true, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_AcceptanceRate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("undefined with no feedback", func(t *testing.T) {
		rate, err := store.AcceptanceRate(ctx, "greeting-hello", nil)
		require.NoError(t, err)
		assert.Nil(t, rate, "no reviewed outcomes must yield nil, not zero")
	})

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []model.StatRecord{
		testOutcome("greeting-hello", "user-1", base.Add(-48*time.Hour), true),
		testOutcome("greeting-hello", "user-2", base, true),
		testOutcome("greeting-hello", "user-3", base, true),
		testOutcome("question-open", "user-1", base, true),
	}
	require.NoError(t, store.SaveOutcomes(ctx, records))

	require.NoError(t, store.AttachFeedback(ctx, records[0].ID, false, "off topic"))
	require.NoError(t, store.AttachFeedback(ctx, records[1].ID, true, ""))
	require.NoError(t, store.AttachFeedback(ctx, records[2].ID, true, ""))
	require.NoError(t, store.AttachFeedback(ctx, records[3].ID, true, ""))

	t.Run("per pattern", func(t *testing.T) {
		rate, err := store.AcceptanceRate(ctx, "greeting-hello", nil)
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.InDelta(t, 2.0/3.0, *rate, 0.001)
	})

	t.Run("overall", func(t *testing.T) {
		rate, err := store.AcceptanceRate(ctx, "", nil)
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.InDelta(t, 0.75, *rate, 0.001)
	})

	t.Run("window excludes old outcomes", func(t *testing.T) {
		since := base.Add(-time.Hour)
		rate, err := store.AcceptanceRate(ctx, "greeting-hello", &since)
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.InDelta(t, 1.0, *rate, 0.001)
	})
}

func TestSQLiteStorage_PatternAcceptanceRates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	greeting1 := testOutcome("greeting-hello", "user-1", base, true)
	greeting2 := testOutcome("greeting-hello", "user-2", base, true)
	question := testOutcome("question-open", "user-1", base, true)
	unmatched := testOutcome("", "user-3", base, false)
	require.NoError(t, store.SaveOutcomes(ctx, []model.StatRecord{greeting1, greeting2, question, unmatched}))

	require.NoError(t, store.AttachFeedback(ctx, greeting1.ID, true, ""))
	require.NoError(t, store.AttachFeedback(ctx, greeting2.ID, false, ""))

	rates, err := store.PatternAcceptanceRates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rates, 3)

	byID := make(map[string]service.PatternAcceptance, len(rates))
	for _, pa := range rates {
		byID[pa.PatternID] = pa
	}

	greeting := byID["greeting-hello"]
	assert.Equal(t, 2, greeting.Sent)
	assert.Equal(t, 2, greeting.Reviewed)
	assert.Equal(t, 1, greeting.Accepted)
	require.NotNil(t, greeting.Rate)
	assert.InDelta(t, 0.5, *greeting.Rate, 0.001)

	open := byID["question-open"]
	assert.Equal(t, 1, open.Sent)
	assert.Equal(t, 0, open.Reviewed)
	assert.Nil(t, open.Rate, "unreviewed pattern must report nil rate")

	none := byID[""]
	assert.Equal(t, 0, none.Sent)
}

func TestSQLiteStorage_Transactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		pattern := testPattern("tx-pattern", model.PriorityHigh)
		require.NoError(t, tx.SavePattern(ctx, &pattern))
		require.NoError(t, tx.Rollback())

		_, err = store.GetPattern(ctx, "tx-pattern")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("commit persists writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		pattern := testPattern("tx-pattern", model.PriorityHigh)
		require.NoError(t, tx.SavePattern(ctx, &pattern))
		require.NoError(t, tx.Commit())

		got, err := store.GetPattern(ctx, "tx-pattern")
		require.NoError(t, err)
		assert.Equal(t, "tx-pattern", got.ID)
	})

	t.Run("nested transactions rejected", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
		assert.Error(t, tx.Migrate(ctx))
		assert.Error(t, tx.Close())
	})
}

func TestSQLiteStorage_Migrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Second run is a no-op
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestNewSQLiteStorage_Validation(t *testing.T) {
	_, err := NewSQLiteStorage("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_NilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // Deliberately exercising the nil-context guard
	_, err := store.GetPattern(nil, "id")
	assert.ErrorIs(t, err, ErrNilContext)
}

func makeOutcomeBatch(n int, userID string, ts time.Time) []model.StatRecord {
	records := make([]model.StatRecord, n)
	for i := range records {
		records[i] = testOutcome(fmt.Sprintf("pattern-%d", i%3), userID, ts.Add(time.Duration(i)*time.Second), true)
	}
	return records
}

func BenchmarkSQLiteStorage_SaveOutcomes(b *testing.B) {
	tmpDir := b.TempDir()
	store, err := NewSQLiteStorage(filepath.Join(tmpDir, "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch := makeOutcomeBatch(50, "bench-user", time.Now())
		if err := store.SaveOutcomes(ctx, batch); err != nil {
			b.Fatal(err)
		}
	}
}
