package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPattern() Pattern {
	return Pattern{
		ID:             "greeting-hello",
		Trigger:        `\b(hello|hi)\b`,
		Type:           TypeGreeting,
		Template:       "Hello, {first_name|there}!",
		Priority:       PriorityHigh,
		Keywords:       []string{"hello", "hi"},
		BaseConfidence: 0.85,
		MinConfidence:  0.5,
		Enabled:        true,
	}
}

func TestPattern_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*Pattern)
		name    string
		wantErr string
	}{
		{
			name:   "valid pattern",
			mutate: func(_ *Pattern) {},
		},
		{
			name:    "missing ID",
			mutate:  func(p *Pattern) { p.ID = "  " },
			wantErr: "pattern id is required",
		},
		{
			name:    "missing trigger",
			mutate:  func(p *Pattern) { p.Trigger = "" },
			wantErr: "trigger is required",
		},
		{
			name:    "invalid trigger regex",
			mutate:  func(p *Pattern) { p.Trigger = "[unclosed" },
			wantErr: "invalid trigger regex",
		},
		{
			name:    "missing template",
			mutate:  func(p *Pattern) { p.Template = "" },
			wantErr: "template is required",
		},
		{
			name:    "unknown message type",
			mutate:  func(p *Pattern) { p.Type = "SHOUTING" },
			wantErr: "unknown message type",
		},
		{
			name:    "unknown priority",
			mutate:  func(p *Pattern) { p.Priority = "whenever" },
			wantErr: "unknown priority",
		},
		{
			name:    "base confidence above one",
			mutate:  func(p *Pattern) { p.BaseConfidence = 1.2 },
			wantErr: "base confidence must be between 0 and 1",
		},
		{
			name:    "negative base confidence",
			mutate:  func(p *Pattern) { p.BaseConfidence = -0.1 },
			wantErr: "base confidence must be between 0 and 1",
		},
		{
			name:    "min confidence above one",
			mutate:  func(p *Pattern) { p.MinConfidence = 1.5 },
			wantErr: "min confidence must be between 0 and 1",
		},
		{
			name:    "blank keyword",
			mutate:  func(p *Pattern) { p.Keywords = []string{"hello", " "} },
			wantErr: "keywords must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := validPattern()
			tt.mutate(&pattern)

			err := pattern.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCaseInsensitive(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "plain source gets the flag", source: `\bhello\b`, want: `(?i)\bhello\b`},
		{name: "existing flags are respected", source: `(?im)^hi$`, want: `(?im)^hi$`},
		{name: "explicit case-sensitive stays", source: `(?-i)HELLO`, want: `(?-i)HELLO`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CaseInsensitive(tt.source))
		})
	}
}

func TestPriority(t *testing.T) {
	t.Run("valid priorities", func(t *testing.T) {
		for _, p := range []Priority{PriorityImmediate, PriorityHigh, PriorityMedium, PriorityLow} {
			assert.True(t, p.Valid(), "priority %s should be valid", p)
		}
		assert.False(t, Priority("someday").Valid())
		assert.False(t, Priority("").Valid())
	})

	t.Run("rank orders priorities", func(t *testing.T) {
		assert.Greater(t, PriorityImmediate.Rank(), PriorityHigh.Rank())
		assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
		assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
		assert.Equal(t, PriorityLow.Rank(), Priority("someday").Rank())
	})
}
