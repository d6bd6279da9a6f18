package classification

import "github.com/ripostebot/riposte/internal/model"

// DefaultPatterns returns the seed pattern set. It covers every message type
// so a fresh install can make sensible decisions before any tuning.
func DefaultPatterns() []model.Pattern {
	return []model.Pattern{
		// Urgent traffic outranks everything else
		{
			ID:             "urgent-help",
			Trigger:        `\b(asap|urgent|urgently|emergency|sos|right now)\b`,
			Type:           model.TypeUrgent,
			Template:       "I hear you, this is urgent. Connecting you with a human right away.",
			Priority:       model.PriorityImmediate,
			Keywords:       []string{"asap", "urgent", "emergency", "now"},
			BaseConfidence: 0.90,
			MinConfidence:  0.5,
			Enabled:        true,
		},

		// Greetings
		{
			ID:             "greeting-hello",
			Trigger:        `\b(hello|hi|hey|howdy|greetings|good (morning|afternoon|evening))\b`,
			Type:           model.TypeGreeting,
			Template:       "Good {time_greeting}, {first_name|there}! How can I help you today?",
			Priority:       model.PriorityImmediate,
			Keywords:       []string{"hello", "hey", "morning"},
			BaseConfidence: 0.85,
			MinConfidence:  0.5,
			Enabled:        true,
		},
		{
			ID:              "greeting-welcome-back",
			Trigger:         `\b(i'?m back|back again|returning)\b`,
			Type:            model.TypeGreeting,
			Template:        "Welcome back, {first_name}! Picking up where we left off.",
			Priority:        model.PriorityMedium,
			BaseConfidence:  0.80,
			MinConfidence:   0.5,
			RequiresContext: true,
			Enabled:         true,
		},

		// Questions
		{
			ID:             "question-status",
			Trigger:        `\b(status|progress|update)\b.*\?`,
			Type:           model.TypeQuestion,
			Template:       "Let me check the latest status for you, {first_name|there}.",
			Priority:       model.PriorityHigh,
			Keywords:       []string{"order", "ticket", "request"},
			BaseConfidence: 0.75,
			MinConfidence:  0.5,
			Enabled:        true,
		},
		{
			ID:             "question-open",
			Trigger:        `\b(who|what|when|where|why|how)\b.*\?`,
			Type:           model.TypeQuestion,
			Template:       "Good question, {first_name|there}. Let me find out.",
			Priority:       model.PriorityMedium,
			Keywords:       []string{"help", "explain", "mean"},
			BaseConfidence: 0.60,
			MinConfidence:  0.65,
			Enabled:        true,
		},

		// Commands
		{
			ID:             "command-slash",
			Trigger:        `^/(start|help|settings|stop|status)\b`,
			Type:           model.TypeCommand,
			Template:       "On it! Running that for you now.",
			Priority:       model.PriorityHigh,
			BaseConfidence: 0.95,
			MinConfidence:  0.5,
			Enabled:        true,
		},

		// Requests
		{
			ID:             "request-can-you",
			Trigger:        `\b(can|could|would)\s+you\b`,
			Type:           model.TypeRequest,
			Template:       "Sure, {first_name|there}, I can help with that.",
			Priority:       model.PriorityMedium,
			Keywords:       []string{"please", "help"},
			BaseConfidence: 0.70,
			MinConfidence:  0.6,
			Enabled:        true,
		},

		// Feedback
		{
			ID:             "feedback-thanks",
			Trigger:        `\b(thanks|thank you|thx|appreciate)\b`,
			Type:           model.TypeFeedback,
			Template:       "Happy to help, {first_name|there}!",
			Priority:       model.PriorityMedium,
			BaseConfidence: 0.85,
			MinConfidence:  0.5,
			Enabled:        true,
		},
		{
			ID:             "feedback-problem",
			Trigger:        `\b(bug|broken|not working|doesn'?t work|error)\b`,
			Type:           model.TypeFeedback,
			Template:       "Sorry about the trouble, {first_name|there}. I have flagged this for the team.",
			Priority:       model.PriorityHigh,
			Keywords:       []string{"bug", "broken", "error"},
			BaseConfidence: 0.80,
			MinConfidence:  0.5,
			Enabled:        true,
		},

		// Small talk
		{
			ID:             "smalltalk-how-are-you",
			Trigger:        `\bhow('?s| is| are) (it going|you|things)\b`,
			Type:           model.TypeSmallTalk,
			Template:       "Doing great, thanks for asking! How about you?",
			Priority:       model.PriorityLow,
			BaseConfidence: 0.85,
			MinConfidence:  0.5,
			Enabled:        true,
		},
		{
			ID:             "smalltalk-bye",
			Trigger:        `\b(bye|goodbye|see you|good night|later)\b`,
			Type:           model.TypeSmallTalk,
			Template:       "Take care, {first_name|friend}! Talk soon.",
			Priority:       model.PriorityLow,
			BaseConfidence: 0.80,
			MinConfidence:  0.5,
			Enabled:        true,
		},

		// Statements
		{
			ID:             "statement-heads-up",
			Trigger:        `^\s*(fyi|heads up|just so you know)\b`,
			Type:           model.TypeStatement,
			Template:       "Noted, {first_name|there}. Thanks for the heads up.",
			Priority:       model.PriorityLow,
			BaseConfidence: 0.75,
			MinConfidence:  0.5,
			Enabled:        true,
		},
	}
}
