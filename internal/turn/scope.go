// Package turn implements the chat turn orchestrator: the single entry
// point that takes one inbound user message and drives it through intent
// classification, log parsing, tool-backed writes, profile/goal sync,
// context assembly, and streamed model generation. Grounded structurally
// on goa-ai's runtime/agent/runtime workflow_turn.go/workflow_loop.go pair
// (planner → policy → grouped tool execution → transcript → loop-or-
// finalize), adapted from a durable, replay-safe workflow engine down to a
// synchronous in-process pipeline, since this core has no distributed
// workflow runtime behind it.
package turn

import (
	"context"
	"time"
)

// scopeKey is the private context key type backing the turn scope, used
// instead of a goroutine-local so the accumulator travels explicitly with
// ctx through every step and tool call of one turn.
type scopeKey struct{}

// Scope accumulates per-turn counters: model-tier call counts and token
// totals, the first-token latency stamp, and any step failures, persisted
// as one AITurnTelemetry row at the end of the pipeline.
type Scope struct {
	StartedAt time.Time

	UtilityCalls   int
	ReasoningCalls int
	DeepCalls      int

	UtilityTokensIn    int
	UtilityTokensOut   int
	ReasoningTokensIn  int
	ReasoningTokensOut int
	DeepTokensIn       int
	DeepTokensOut      int

	FirstTokenLatency time.Duration
	firstTokenStamped bool

	Failures []string
}

// NewScope opens a fresh turn scope stamped with the current time.
func NewScope() *Scope {
	return &Scope{StartedAt: time.Now()}
}

// WithScope returns a context carrying s, retrievable with FromContext.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the turn scope carried by ctx, or nil if none was
// ever opened (e.g. a tool handler invoked outside a turn, in a test).
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// RecordUtility records one utility-model call's token usage.
func (s *Scope) RecordUtility(tokensIn, tokensOut int) {
	if s == nil {
		return
	}
	s.UtilityCalls++
	s.UtilityTokensIn += tokensIn
	s.UtilityTokensOut += tokensOut
}

// RecordReasoning records one reasoning-model call's token usage.
func (s *Scope) RecordReasoning(tokensIn, tokensOut int) {
	if s == nil {
		return
	}
	s.ReasoningCalls++
	s.ReasoningTokensIn += tokensIn
	s.ReasoningTokensOut += tokensOut
}

// RecordDeep records one deep-thinking-model call's token usage.
func (s *Scope) RecordDeep(tokensIn, tokensOut int) {
	if s == nil {
		return
	}
	s.DeepCalls++
	s.DeepTokensIn += tokensIn
	s.DeepTokensOut += tokensOut
}

// StampFirstToken records the latency to the first streamed chunk, once.
func (s *Scope) StampFirstToken() {
	if s == nil || s.firstTokenStamped {
		return
	}
	s.firstTokenStamped = true
	s.FirstTokenLatency = time.Since(s.StartedAt)
}

// RecordFailure appends a non-fatal step failure, kept for the turn
// telemetry row's FailureJSON column rather than aborting the turn.
func (s *Scope) RecordFailure(step, reason string) {
	if s == nil {
		return
	}
	s.Failures = append(s.Failures, step+": "+reason)
}

// UnderBudget reports whether one more utility call is still within
// maxUtilityCalls for this turn (spec budget-containment invariant).
func (s *Scope) UnderBudget(maxUtilityCalls int) bool {
	if s == nil {
		return true
	}
	return s.UtilityCalls < maxUtilityCalls
}
