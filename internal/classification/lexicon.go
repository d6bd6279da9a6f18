package classification

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ripostebot/riposte/internal/model"
)

var urgencyRegex = regexp.MustCompile(`(?i)\b(asap|urgent|urgently|emergency|immediately|right\s+now|critical)\b`)

var positiveWords = map[string]bool{
	"thanks":    true,
	"thank":     true,
	"great":     true,
	"awesome":   true,
	"love":      true,
	"nice":      true,
	"good":      true,
	"perfect":   true,
	"excellent": true,
	"happy":     true,
	"wonderful": true,
}

var negativeWords = map[string]bool{
	"bad":          true,
	"hate":         true,
	"terrible":     true,
	"awful":        true,
	"broken":       true,
	"wrong":        true,
	"angry":        true,
	"annoyed":      true,
	"disappointed": true,
	"horrible":     true,
	"useless":      true,
	"problem":      true,
}

// HasUrgency reports whether the text carries urgency markers: urgency
// vocabulary, doubled exclamation marks, or shouted words with an
// exclamation somewhere in the message.
func HasUrgency(text string) bool {
	if urgencyRegex.MatchString(text) {
		return true
	}
	if strings.Contains(text, "!!") {
		return true
	}
	if strings.Contains(text, "!") && hasShoutedWord(text) {
		return true
	}
	return false
}

// DetectSentiment counts sentiment vocabulary; the larger count wins and
// ties are neutral.
func DetectSentiment(text string) model.Sentiment {
	positive := 0
	negative := 0

	for _, word := range tokenize(text) {
		if positiveWords[word] {
			positive++
		}
		if negativeWords[word] {
			negative++
		}
	}

	switch {
	case positive > negative:
		return model.SentimentPositive
	case negative > positive:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func hasShoutedWord(text string) bool {
	for _, token := range strings.Fields(text) {
		letters := 0
		upper := 0
		for _, r := range token {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters >= 3 && letters == upper {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
