// Package classification analyzes raw messages against the pattern registry.
package classification

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/registry"
)

// Default tuning values, overridable through Config.
const (
	DefaultConfidenceFloor  = 0.5
	DefaultKeywordBonus     = 0.05
	DefaultMaxMessageLength = 4096
)

// Config tunes the classifier.
type Config struct {
	// ConfidenceFloor is the minimum confidence for a pattern match to count.
	// Below it the message falls back to a statement.
	ConfidenceFloor float64
	// KeywordBonus is added per matched keyword, clamped at 1.0.
	KeywordBonus float64
	// MaxMessageLength is the maximum accepted message length in runes.
	MaxMessageLength int
}

// Classifier implements pattern-based message classification. Identical text
// against an identical snapshot always yields an identical classification.
type Classifier struct {
	floor        float64
	keywordBonus float64
	maxLength    int
}

// NewClassifier creates a classifier, filling zero config values with defaults.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.ConfidenceFloor == 0 {
		cfg.ConfidenceFloor = DefaultConfidenceFloor
	}
	if cfg.KeywordBonus == 0 {
		cfg.KeywordBonus = DefaultKeywordBonus
	}
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}

	if cfg.ConfidenceFloor < 0 || cfg.ConfidenceFloor > 1 {
		return nil, fmt.Errorf("%w: confidence floor must be between 0 and 1", common.ErrInvalidConfig)
	}
	if cfg.KeywordBonus < 0 || cfg.KeywordBonus > 1 {
		return nil, fmt.Errorf("%w: keyword bonus must be between 0 and 1", common.ErrInvalidConfig)
	}
	if cfg.MaxMessageLength < 1 {
		return nil, fmt.Errorf("%w: max message length must be positive", common.ErrInvalidConfig)
	}

	return &Classifier{
		floor:        cfg.ConfidenceFloor,
		keywordBonus: cfg.KeywordBonus,
		maxLength:    cfg.MaxMessageLength,
	}, nil
}

// Classify analyzes one message against the given pattern snapshot.
func (c *Classifier) Classify(_ context.Context, text string, snap *registry.Snapshot) (model.Classification, error) {
	if err := c.validateText(text); err != nil {
		return model.Classification{}, err
	}

	lowered := strings.ToLower(text)

	var (
		best           *registry.CompiledPattern
		bestConfidence float64
		bestKeywords   []string
	)

	// Patterns arrive in priority order; a strict greater-than comparison
	// makes ties resolve to the earlier pattern.
	for i := range snap.Patterns() {
		cp := &snap.Patterns()[i]
		if !cp.Enabled {
			continue
		}
		if !cp.Matches(text) {
			continue
		}

		confidence := cp.BaseConfidence
		var matched []string
		for _, kw := range cp.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				confidence = minFloat(confidence+c.keywordBonus, 1.0)
				matched = append(matched, kw)
			}
		}

		if confidence > bestConfidence {
			best = cp
			bestConfidence = confidence
			bestKeywords = matched
		}
	}

	result := model.Classification{
		RawText:           text,
		Sentiment:         DetectSentiment(text),
		HasUrgencyMarkers: HasUrgency(text),
	}

	if best == nil || bestConfidence < c.floor {
		// No usable match; treat as a plain statement
		result.Type = model.TypeStatement
		result.Confidence = c.floor
		return result, nil
	}

	result.Type = best.Type
	result.Confidence = bestConfidence
	result.PatternID = best.ID
	result.MatchedKeywords = bestKeywords

	return result, nil
}

// ConfidenceFloor returns the configured floor.
func (c *Classifier) ConfidenceFloor() float64 {
	return c.floor
}

func (c *Classifier) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty message", common.ErrInvalidInput)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: message is not valid UTF-8", common.ErrInvalidInput)
	}
	if length := utf8.RuneCountInString(text); length > c.maxLength {
		return fmt.Errorf("%w: message length %d exceeds limit %d", common.ErrInvalidInput, length, c.maxLength)
	}
	return nil
}

// minFloat returns the minimum of two float64 values.
func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
