// Package respond renders pattern templates into outgoing message text.
package respond

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
)

// UrgencyAckID names the built-in acknowledgment used for urgent messages
// that matched no pattern.
const UrgencyAckID = "builtin-urgency-ack"

const urgencyAckTemplate = "I can tell this is urgent, {first_name|friend}. Flagging it for immediate attention."

// Placeholders are {name} with an optional fallback: {name|fallback}.
var placeholderRegex = regexp.MustCompile(`\{([a-z_]+)(?:\|([^{}]*))?\}`)

// Generator produces response text from templates. Rendering is fully
// deterministic: identical inputs always produce identical output, and any
// unresolvable placeholder fails the whole render instead of leaking a
// partial response.
type Generator struct{}

// New creates a response generator.
func New() *Generator {
	return &Generator{}
}

// Generate renders the pattern's template for the classified message.
// A pattern marked RequiresContext fails when the user's first name is
// unknown, even if the template never references it.
func (g *Generator) Generate(classification model.Classification, user model.UserContext, pattern model.Pattern, now time.Time) (string, error) {
	if pattern.RequiresContext && strings.TrimSpace(user.FirstName) == "" {
		return "", &common.TemplateError{Placeholder: "first_name", PatternID: pattern.ID}
	}

	return g.render(pattern.ID, pattern.Template, classification, user, now)
}

// UrgencyAck renders the built-in acknowledgment for urgent messages without
// a matching pattern.
func (g *Generator) UrgencyAck(classification model.Classification, user model.UserContext, now time.Time) (string, error) {
	return g.render(UrgencyAckID, urgencyAckTemplate, classification, user, now)
}

func (g *Generator) render(patternID, template string, classification model.Classification, user model.UserContext, now time.Time) (string, error) {
	values := map[string]string{
		"first_name":       user.FirstName,
		"user_id":          user.UserID,
		"message_type":     strings.ToLower(string(classification.Type)),
		"matched_keywords": strings.Join(classification.MatchedKeywords, ", "),
		"time_greeting":    timeGreeting(now),
		"urgency_note":     urgencyNote(classification),
	}

	var renderErr error
	rendered := placeholderRegex.ReplaceAllStringFunc(template, func(raw string) string {
		groups := placeholderRegex.FindStringSubmatch(raw)
		name := groups[1]
		fallback := groups[2]
		hasFallback := strings.Contains(raw, "|")

		value, known := values[name]
		switch {
		case known && value != "":
			return value
		case hasFallback:
			// An explicit fallback, even an empty one, makes the
			// placeholder optional
			return fallback
		default:
			if renderErr == nil {
				renderErr = &common.TemplateError{Placeholder: name, PatternID: patternID}
			}
			return raw
		}
	})
	if renderErr != nil {
		return "", renderErr
	}

	if strings.TrimSpace(rendered) == "" {
		return "", fmt.Errorf("%w: pattern %s rendered an empty response", common.ErrTemplate, patternID)
	}

	return rendered, nil
}

func timeGreeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func urgencyNote(classification model.Classification) string {
	if classification.HasUrgencyMarkers {
		return "This looks urgent, so I am prioritizing it."
	}
	return ""
}
