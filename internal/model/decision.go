package model

// DecisionReason explains why the engine accepted or refused a response.
type DecisionReason string

// Decision reason constants.
const (
	ReasonPatternMatched   DecisionReason = "PATTERN_MATCHED"
	ReasonUrgencyOverride  DecisionReason = "URGENCY_OVERRIDE"
	ReasonLowConfidence    DecisionReason = "LOW_CONFIDENCE"
	ReasonRateLimited      DecisionReason = "RATE_LIMITED"
	ReasonLoopDetected     DecisionReason = "LOOP_DETECTED"
	ReasonGuardUnavailable DecisionReason = "GUARD_UNAVAILABLE"
)

// DecisionResult is the engine's verdict on whether to auto-respond.
// When ShouldRespond is false the caller defers to the external generator.
type DecisionResult struct {
	Reason        DecisionReason
	PatternID     string
	Priority      Priority
	ShouldRespond bool
}

// Deferred reports whether the verdict hands the message to the generator.
func (d DecisionResult) Deferred() bool {
	return !d.ShouldRespond
}
