// Package registry holds the in-memory pattern set used for classification.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
)

// CompiledPattern holds a compiled trigger regex with its pattern metadata.
type CompiledPattern struct {
	compiledRegex *regexp.Regexp
	model.Pattern
}

// Matches reports whether the trigger regex matches the text.
func (cp *CompiledPattern) Matches(text string) bool {
	return cp.compiledRegex.MatchString(text)
}

// Snapshot is an immutable view of the pattern set. Patterns are ordered by
// priority (highest first), then by ID, so matching is deterministic.
type Snapshot struct {
	byID     map[string]int
	patterns []CompiledPattern
}

// Patterns returns the patterns in match order. Callers must not mutate it.
func (s *Snapshot) Patterns() []CompiledPattern {
	return s.patterns
}

// Get looks up a pattern by ID.
func (s *Snapshot) Get(id string) (*CompiledPattern, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.patterns[idx], true
}

// Len returns the number of patterns in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.patterns)
}

// Registry manages the live pattern set. Readers load a snapshot without
// locking; writers serialize on a mutex and swap in a fully built snapshot,
// so a reload can never expose a partially updated set.
type Registry struct {
	snap atomic.Pointer[Snapshot]
	mu   sync.Mutex
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(&Snapshot{byID: map[string]int{}})
	return r
}

// NewWithPatterns creates a registry preloaded with the given patterns.
func NewWithPatterns(patterns []model.Pattern) (*Registry, error) {
	r := New()
	if err := r.Load(patterns); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the current pattern set. The result is safe to use for any
// number of classifications; it simply goes stale after the next reload.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Len returns the number of patterns currently loaded.
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// Load replaces the entire pattern set. If any pattern fails validation the
// registry keeps serving the previous set unchanged.
func (r *Registry) Load(patterns []model.Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := build(patterns)
	if err != nil {
		return err
	}

	r.snap.Store(snap)
	return nil
}

// Upsert adds or replaces a single pattern. An invalid pattern leaves the
// registry untouched.
func (r *Registry) Upsert(pattern model.Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := pattern.Validate(); err != nil {
		return common.NewValidationError(pattern.ID, err)
	}

	current := r.snap.Load()
	next := make([]model.Pattern, 0, len(current.patterns)+1)
	for i := range current.patterns {
		if current.patterns[i].ID == pattern.ID {
			continue
		}
		next = append(next, current.patterns[i].Pattern)
	}
	next = append(next, pattern)

	snap, err := build(next)
	if err != nil {
		return err
	}

	r.snap.Store(snap)
	return nil
}

// Remove deletes a pattern by ID. It reports whether the pattern existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snap.Load()
	if _, ok := current.byID[id]; !ok {
		return false
	}

	next := make([]model.Pattern, 0, len(current.patterns)-1)
	for i := range current.patterns {
		if current.patterns[i].ID == id {
			continue
		}
		next = append(next, current.patterns[i].Pattern)
	}

	snap, err := build(next)
	if err != nil {
		// Remaining patterns were already validated on the way in.
		return false
	}

	r.snap.Store(snap)
	return true
}

func build(patterns []model.Pattern) (*Snapshot, error) {
	compiled := make([]CompiledPattern, 0, len(patterns))

	seen := make(map[string]bool, len(patterns))
	for i := range patterns {
		p := patterns[i]
		if err := p.Validate(); err != nil {
			return nil, common.NewValidationError(p.ID, err)
		}
		if seen[p.ID] {
			return nil, common.NewValidationError(p.ID, fmt.Errorf("%w: pattern id", common.ErrDuplicateEntry))
		}
		seen[p.ID] = true

		regex, err := regexp.Compile(model.CaseInsensitive(p.Trigger))
		if err != nil {
			return nil, common.NewValidationError(p.ID, fmt.Errorf("failed to compile trigger: %w", err))
		}

		compiled = append(compiled, CompiledPattern{
			Pattern:       p,
			compiledRegex: regex,
		})
	}

	// Sort by priority (highest first), ties broken by ID
	sort.Slice(compiled, func(i, j int) bool {
		if compiled[i].Priority.Rank() != compiled[j].Priority.Rank() {
			return compiled[i].Priority.Rank() > compiled[j].Priority.Rank()
		}
		return compiled[i].ID < compiled[j].ID
	})

	byID := make(map[string]int, len(compiled))
	for i := range compiled {
		byID[compiled[i].ID] = i
	}

	return &Snapshot{patterns: compiled, byID: byID}, nil
}
