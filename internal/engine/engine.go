// Package engine implements the accept-or-defer decision core for automatic
// responses.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/registry"
	"github.com/ripostebot/riposte/internal/respond"
)

// DecisionEngine orchestrates classification, guard checks, and rendering
// for one inbound message at a time.
type DecisionEngine struct {
	registry   *registry.Registry
	classifier Classifier
	guard      Guard
	renderer   Renderer
	recorder   Recorder
}

// Reply is the outcome of running the full pipeline on one message. Text is
// only set when Sent is true; a deferred reply hands the message to the
// external generator.
type Reply struct {
	Classification model.Classification
	Decision       model.DecisionResult
	Text           string
	RecordID       string
	Sent           bool
}

// Deferred reports whether the caller should invoke the external generator.
func (r *Reply) Deferred() bool {
	return !r.Sent
}

// New creates a decision engine with the given dependencies.
func New(reg *registry.Registry, classifier Classifier, g Guard, renderer Renderer, recorder Recorder) (*DecisionEngine, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if g == nil {
		return nil, fmt.Errorf("guard is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}

	return &DecisionEngine{
		registry:   reg,
		classifier: classifier,
		guard:      g,
		renderer:   renderer,
		recorder:   recorder,
	}, nil
}

// Classify analyzes one message against the current pattern set.
func (e *DecisionEngine) Classify(ctx context.Context, text string) (model.Classification, error) {
	return e.classifier.Classify(ctx, text, e.registry.Snapshot())
}

// Decide evaluates whether the classified message should get an automatic
// response. It never counts a response against the user's window; callers
// that actually send must report it through the guard, which Respond does.
func (e *DecisionEngine) Decide(classification model.Classification, user model.UserContext, history []model.Origin, now time.Time) model.DecisionResult {
	return e.decide(classification, user, history, now, e.registry.Snapshot())
}

func (e *DecisionEngine) decide(classification model.Classification, user model.UserContext, history []model.Origin, now time.Time, snap *registry.Snapshot) model.DecisionResult {
	urgent := classification.HasUrgencyMarkers

	var matched *registry.CompiledPattern
	if classification.PatternID != "" {
		matched, _ = snap.Get(classification.PatternID)
	}

	// Without urgency there is nothing to say below the pattern's own bar,
	// and nothing to say at all without a pattern.
	if !urgent {
		if matched == nil {
			return e.refuse(model.ReasonLowConfidence, classification)
		}
		if classification.Confidence < matched.MinConfidence {
			return e.refuse(model.ReasonLowConfidence, classification)
		}
	}

	// Loop protection is never bypassed, urgent or not
	if e.guard.LoopDetected(history) {
		return e.refuse(model.ReasonLoopDetected, classification)
	}

	if urgent {
		result := model.DecisionResult{
			ShouldRespond: true,
			Reason:        model.ReasonUrgencyOverride,
			Priority:      model.PriorityImmediate,
		}
		// A sub-threshold match is not trusted for content; the generic
		// acknowledgment covers it instead.
		if matched != nil && classification.Confidence >= matched.MinConfidence {
			result.PatternID = matched.ID
		}
		return result
	}

	if err := e.guard.Seed(user.UserID, user.RecentAutoResponses); err != nil {
		slog.Error("Guard seed failed", "user", user.UserID, "error", err)
		return e.refuse(model.ReasonGuardUnavailable, classification)
	}

	allowed, err := e.guard.Allow(user.UserID, user.IsPremium, now)
	if err != nil {
		slog.Error("Guard check failed", "user", user.UserID, "error", err)
		return e.refuse(model.ReasonGuardUnavailable, classification)
	}
	if !allowed {
		return e.refuse(model.ReasonRateLimited, classification)
	}

	priority := matched.Priority
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	return model.DecisionResult{
		ShouldRespond: true,
		Reason:        model.ReasonPatternMatched,
		PatternID:     matched.ID,
		Priority:      priority,
	}
}

// refuse builds a refusal attributed to the pattern the classifier matched,
// if any, so per-pattern statistics see refusals too.
func (e *DecisionEngine) refuse(reason model.DecisionReason, classification model.Classification) model.DecisionResult {
	return model.DecisionResult{
		ShouldRespond: false,
		Reason:        reason,
		PatternID:     classification.PatternID,
	}
}

// Respond runs the full pipeline: classify, decide, render. The response only
// counts against the user's window after it rendered successfully, so a
// template failure can never burn rate limit budget. Every decision leaves an
// outcome record; only malformed input returns an error.
func (e *DecisionEngine) Respond(ctx context.Context, text string, user model.UserContext, history []model.Origin, now time.Time) (*Reply, error) {
	snap := e.registry.Snapshot()

	classification, err := e.classifier.Classify(ctx, text, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to classify message: %w", err)
	}

	decision := e.decide(classification, user, history, now, snap)
	reply := &Reply{Classification: classification, Decision: decision}

	if !decision.ShouldRespond {
		reply.RecordID = e.record(decision.PatternID, user.UserID, now, false)
		slog.Info("Deferring to generator",
			"user", user.UserID,
			"reason", decision.Reason,
			"type", classification.Type,
			"confidence", classification.Confidence)
		return reply, nil
	}

	rendered, renderErr := e.render(decision, classification, user, now, snap)
	if renderErr != nil {
		// Fail closed: a response we cannot render cleanly is not sent
		reply.RecordID = e.record(decision.PatternID, user.UserID, now, false)
		slog.Warn("Render failed, deferring to generator",
			"user", user.UserID,
			"pattern", decision.PatternID,
			"error", renderErr)
		return reply, nil
	}

	if err := e.guard.RecordResponse(user.UserID, now); err != nil {
		slog.Error("Failed to record response against rate window",
			"user", user.UserID,
			"error", err)
	}

	reply.Sent = true
	reply.Text = rendered
	reply.RecordID = e.record(e.sentPatternID(decision), user.UserID, now, true)

	slog.Info("Responding automatically",
		"user", user.UserID,
		"reason", decision.Reason,
		"pattern", decision.PatternID,
		"priority", decision.Priority)

	return reply, nil
}

func (e *DecisionEngine) render(decision model.DecisionResult, classification model.Classification, user model.UserContext, now time.Time, snap *registry.Snapshot) (string, error) {
	if decision.PatternID == "" {
		return e.renderer.UrgencyAck(classification, user, now)
	}

	matched, ok := snap.Get(decision.PatternID)
	if !ok {
		return "", fmt.Errorf("pattern %s disappeared from the registry", decision.PatternID)
	}

	return e.renderer.Generate(classification, user, matched.Pattern, now)
}

// sentPatternID attributes a sent response. Urgency acknowledgments without a
// pattern carry the built-in ID so they show up in acceptance statistics.
func (e *DecisionEngine) sentPatternID(decision model.DecisionResult) string {
	if decision.PatternID == "" {
		return respond.UrgencyAckID
	}
	return decision.PatternID
}

func (e *DecisionEngine) record(patternID, userID string, now time.Time, wasSent bool) string {
	record := model.NewStatRecord(patternID, userID, now, wasSent)
	e.recorder.Record(record)
	return record.ID
}
