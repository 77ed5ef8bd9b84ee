package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
)

func messagesToModel(msgs []domain.Message) []*model.Message {
	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		role := model.RoleUser
		if m.Role == domain.MessageRoleAssistant {
			role = model.RoleAssistant
		}
		out = append(out, &model.Message{Role: role, Parts: []model.Part{model.TextPart{Text: m.Content}}})
	}
	return out
}

// stepStreamingGeneration is turn pipeline step 18: fetch recent history,
// stream the reasoning model's reply, stamp first-token latency on the
// first non-empty chunk, and accumulate the full response for persistence.
func (o *Orchestrator) stepStreamingGeneration(ctx context.Context, st *turnState) (context.Context, error) {
	if st.terminated {
		return ctx, nil
	}

	userMsg := &domain.Message{
		UserID:  st.userID,
		Role:    domain.MessageRoleUser,
		Content: st.rawMessage,
	}
	id, err := o.store.InsertMessage(ctx, userMsg)
	if err != nil {
		return ctx, fmt.Errorf("persist user message: %w", err)
	}
	st.userMessageID = id

	history, err := o.store.RecentMessages(ctx, st.userID, o.cfg.RecentMessageWindow)
	if err != nil {
		return ctx, fmt.Errorf("load recent messages: %w", err)
	}
	messages := messagesToModel(history)
	messages = append(messages, &model.Message{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: st.effectiveMessage}}})

	req := &model.Request{
		Model:      st.client.ReasoningModel(),
		ModelClass: model.ModelClassHighReasoning,
		System:     st.systemPrompt,
		Messages:   messages,
		Stream:     true,
	}
	stream, err := st.client.Stream(ctx, req)
	if err != nil {
		st.fail("streaming_generation", err)
		st.emit(Chunk{Type: ChunkError, Text: "I hit a problem generating a reply. Please try again."})
		st.emit(Chunk{Type: ChunkDone})
		st.terminated = true
		return ctx, nil
	}
	defer stream.Close()

	var text strings.Builder
	firstToken := true
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, model.ErrStreamDone) {
				break
			}
			st.fail("streaming_generation", err)
			break
		}
		if chunk.Text != "" {
			if firstToken {
				st.scope.StampFirstToken()
				firstToken = false
			}
			text.WriteString(chunk.Text)
			st.emit(Chunk{Type: ChunkText, Text: chunk.Text})
		}
		if chunk.UsageDelta != nil {
			st.usage.InputTokens += chunk.UsageDelta.InputTokens
			st.usage.OutputTokens += chunk.UsageDelta.OutputTokens
			st.usage.TotalTokens += chunk.UsageDelta.TotalTokens
		}
		if chunk.StopReason != "" {
			st.responseStopReason = chunk.StopReason
		}
	}
	st.scope.RecordReasoning(st.usage.InputTokens, st.usage.OutputTokens)
	st.responseText = text.String()
	return ctx, nil
}
