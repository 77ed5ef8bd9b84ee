package turn

import (
	"context"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// stepPersistence is turn pipeline step 20: persist the assistant's reply
// (the user message was already written in step 18, before streaming
// started), flush turn telemetry, emit the terminal done chunk, and close
// the scope's clock.
func (o *Orchestrator) stepPersistence(ctx context.Context, st *turnState) (context.Context, error) {
	if st.terminated {
		return ctx, nil
	}

	assistantMsg := &domain.Message{
		UserID:     st.userID,
		Role:       domain.MessageRoleAssistant,
		Content:    st.responseText,
		Specialist: st.intentResult.Specialist,
		ModelUsed:  st.client.ReasoningModel(),
		TokensIn:   st.usage.InputTokens,
		TokensOut:  st.usage.OutputTokens,
	}
	if _, err := o.store.InsertMessage(ctx, assistantMsg); err != nil {
		o.log.Warn(ctx, "failed to persist assistant message", "user_id", st.userID, "error", err)
	}

	st.emit(Chunk{Type: ChunkDone})

	if err := o.store.InsertTurnTelemetry(ctx, o.buildTelemetry(st)); err != nil {
		o.log.Warn(ctx, "failed to persist turn telemetry", "user_id", st.userID, "error", err)
	}
	return ctx, nil
}
