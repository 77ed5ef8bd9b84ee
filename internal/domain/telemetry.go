package domain

import (
	"encoding/json"
	"time"
)

// RequestTelemetryEvent is a generic performance event (one row per
// measured operation, not only chat turns).
type RequestTelemetryEvent struct {
	ID              int64
	UserID          int64
	Name            string
	DurationMS      int64
	FirstByteMS     int64
	FailureJSON     json.RawMessage
	CreatedAt       time.Time
}

// AITurnTelemetry is the per-turn performance + token usage record persisted
// at the end of the turn orchestrator's pipeline (turn pipeline step 20).
type AITurnTelemetry struct {
	ID                int64
	UserID            int64
	MessageID         int64
	Category          string
	Specialist        string
	UtilityCalls      int
	ReasoningCalls     int
	DeepCalls          int
	UtilityTokensIn    int
	UtilityTokensOut   int
	ReasoningTokensIn  int
	ReasoningTokensOut int
	DeepTokensIn       int
	DeepTokensOut      int
	FirstTokenMS       int64
	TotalMS            int64
	FailureJSON        json.RawMessage
	CreatedAt          time.Time
}

// FeedbackEntry captures an auto-extracted bug/enhancement report (turn
// pipeline step 7). Supplemented from original_source's feedback API surface;
// dedupe is enforced by title-similarity within a 30-minute window at the
// call site, not by a unique index, since near-duplicate detection needs
// fuzzy matching.
type FeedbackEntry struct {
	ID          int64
	UserID      int64
	Specialist  string
	Kind        string // bug | enhancement
	Title       string
	Description string
	CreatedAt   time.Time
}
