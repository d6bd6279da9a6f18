package testutil

import (
	"testing"
	"time"

	"github.com/ripostebot/riposte/internal/classification"
	"github.com/ripostebot/riposte/internal/model"
)

// ScenarioPatterns returns the three patterns most decision tests revolve
// around: a high-confidence greeting, an urgent trigger, and an open question
// whose base confidence sits below its own threshold.
func ScenarioPatterns() []model.Pattern {
	return SelectPatterns("greeting-hello", "urgent-help", "question-open")
}

// SelectPatterns picks patterns by ID from the default set, preserving the
// requested order. Unknown IDs are skipped.
func SelectPatterns(ids ...string) []model.Pattern {
	defaults := classification.DefaultPatterns()
	byID := make(map[string]model.Pattern, len(defaults))
	for _, p := range defaults {
		byID[p.ID] = p
	}

	var selected []model.Pattern
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			selected = append(selected, p)
		}
	}
	return selected
}

// MustPattern returns the default pattern with the given ID or fails the test.
func MustPattern(t *testing.T, id string) model.Pattern {
	t.Helper()
	selected := SelectPatterns(id)
	if len(selected) != 1 {
		t.Fatalf("no default pattern with ID %q", id)
	}
	return selected[0]
}

// User returns a plain non-premium user context.
func User(id, firstName string) model.UserContext {
	return model.UserContext{
		UserID:       id,
		FirstName:    firstName,
		MessageCount: 5,
	}
}

// PremiumUser returns a premium user context, exempt from rate limits.
func PremiumUser(id, firstName string) model.UserContext {
	ctx := User(id, firstName)
	ctx.IsPremium = true
	return ctx
}

// ExhaustedUser returns a user context whose recent response history already
// fills a three-response window ending at now.
func ExhaustedUser(id, firstName string, now time.Time) model.UserContext {
	ctx := User(id, firstName)
	ctx.RecentAutoResponses = []time.Time{
		now.Add(-5 * time.Minute),
		now.Add(-15 * time.Minute),
		now.Add(-30 * time.Minute),
	}
	return ctx
}

// AutoLoopHistory returns a most recent first history whose tail is all
// automated traffic, enough to trip the default loop threshold.
func AutoLoopHistory() []model.Origin {
	return []model.Origin{model.OriginAuto, model.OriginGenerator, model.OriginUser}
}

// ConversationHistory returns a most recent first history with a user message
// on top, which never counts as a loop.
func ConversationHistory() []model.Origin {
	return []model.Origin{model.OriginUser, model.OriginAuto, model.OriginUser}
}
