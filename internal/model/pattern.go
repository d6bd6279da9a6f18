package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Priority controls how quickly an accepted response should go out.
type Priority string

// Priority constants, highest first.
const (
	PriorityImmediate Priority = "immediate"
	PriorityHigh      Priority = "high"
	PriorityMedium    Priority = "medium"
	PriorityLow       Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityImmediate, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps the priority to a comparable weight; higher means sooner.
func (p Priority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Pattern is a rule for recognizing a message and producing a canned response.
// Trigger is a regular expression applied case-insensitively to the raw text.
// Keywords add confidence on top of BaseConfidence when present in the text.
type Pattern struct {
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	ID              string      `json:"id"`
	Trigger         string      `json:"trigger"`
	Type            MessageType `json:"type"`
	Template        string      `json:"template"`
	Priority        Priority    `json:"priority"`
	Keywords        []string    `json:"keywords,omitempty"`
	BaseConfidence  float64     `json:"base_confidence"`
	MinConfidence   float64     `json:"min_confidence"`
	UseCount        int         `json:"use_count"`
	RequiresContext bool        `json:"requires_context"`
	Enabled         bool        `json:"enabled"`
}

// Validate ensures the pattern has valid data.
func (p *Pattern) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("pattern id is required")
	}

	if strings.TrimSpace(p.Trigger) == "" {
		return fmt.Errorf("trigger is required")
	}
	if _, err := regexp.Compile(CaseInsensitive(p.Trigger)); err != nil {
		return fmt.Errorf("invalid trigger regex: %w", err)
	}

	if strings.TrimSpace(p.Template) == "" {
		return fmt.Errorf("template is required")
	}

	if !p.Type.Valid() {
		return fmt.Errorf("unknown message type: %s", p.Type)
	}
	if !p.Priority.Valid() {
		return fmt.Errorf("unknown priority: %s", p.Priority)
	}

	if p.BaseConfidence < 0 || p.BaseConfidence > 1 {
		return fmt.Errorf("base confidence must be between 0 and 1")
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}

	for _, kw := range p.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keywords must not be empty")
		}
	}

	return nil
}

// CaseInsensitive prefixes a regex source with (?i) unless the source
// already sets its own flags.
func CaseInsensitive(source string) string {
	if strings.HasPrefix(source, "(?") {
		return source
	}
	return "(?i)" + source
}
