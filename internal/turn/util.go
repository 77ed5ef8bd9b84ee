package turn

import (
	"encoding/json"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// mustJSON marshals a tool payload built from static, known-good Go values;
// a marshal failure here would mean a programming error, not bad input, so
// it degrades to an empty payload rather than propagating an error state
// every call site would have to handle.
func mustJSON(v map[string]any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// buildTelemetry snapshots the turn scope into a persistable
// AITurnTelemetry row.
func (o *Orchestrator) buildTelemetry(st *turnState) *domain.AITurnTelemetry {
	var failureJSON []byte
	if len(st.scope.Failures) > 0 {
		failureJSON, _ = json.Marshal(st.scope.Failures)
	}
	return &domain.AITurnTelemetry{
		UserID:             st.userID,
		MessageID:          st.userMessageID,
		Category:           string(st.intentResult.Category),
		Specialist:         st.intentResult.Specialist,
		UtilityCalls:       st.scope.UtilityCalls,
		ReasoningCalls:     st.scope.ReasoningCalls,
		DeepCalls:          st.scope.DeepCalls,
		UtilityTokensIn:    st.scope.UtilityTokensIn,
		UtilityTokensOut:   st.scope.UtilityTokensOut,
		ReasoningTokensIn:  st.scope.ReasoningTokensIn,
		ReasoningTokensOut: st.scope.ReasoningTokensOut,
		DeepTokensIn:       st.scope.DeepTokensIn,
		DeepTokensOut:      st.scope.DeepTokensOut,
		FirstTokenMS:       st.scope.FirstTokenLatency.Milliseconds(),
		TotalMS:            time.Since(st.scope.StartedAt).Milliseconds(),
		FailureJSON:        failureJSON,
		CreatedAt:          time.Now().UTC(),
	}
}
