package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
)

var checkinPhrases = []string{
	"hi", "hello", "hey", "yo", "sup", "what's up", "whats up",
	"good morning", "good afternoon", "good evening", "good night",
	"how's it going", "hows it going", "how are you", "checking in", "just checking in",
}

func isLowSignalCheckin(msg string) bool {
	t := strings.ToLower(strings.TrimSpace(msg))
	t = strings.TrimRight(t, "!.? ")
	if t == "" || len(t) > 40 {
		return false
	}
	for _, p := range checkinPhrases {
		if t == p {
			return true
		}
	}
	return false
}

// stepLowSignalCheckin is turn pipeline step 6: short greetings get a
// deterministic, plan-aware reply with no LLM call at all, and the turn
// ends there without touching any logs.
func (o *Orchestrator) stepLowSignalCheckin(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed {
		return ctx, nil
	}
	if st.intentResult.Category != "general_chat" || !isLowSignalCheckin(st.rawMessage) {
		return ctx, nil
	}

	reply := o.planAwareGreeting(ctx, st)

	userMsg := &domain.Message{
		UserID:  st.userID,
		Role:    domain.MessageRoleUser,
		Content: st.rawMessage,
	}
	if _, err := o.store.InsertMessage(ctx, userMsg); err != nil {
		return ctx, fmt.Errorf("persist user message: %w", err)
	}
	assistantMsg := &domain.Message{
		UserID:     st.userID,
		Role:       domain.MessageRoleAssistant,
		Content:    reply,
		Specialist: st.intentResult.Specialist,
	}
	if _, err := o.store.InsertMessage(ctx, assistantMsg); err != nil {
		return ctx, fmt.Errorf("persist assistant message: %w", err)
	}

	st.emit(Chunk{Type: ChunkText, Text: reply})
	st.emit(Chunk{Type: ChunkDone})

	if err := o.store.InsertTurnTelemetry(ctx, o.buildTelemetry(st)); err != nil {
		o.log.Warn(ctx, "failed to persist turn telemetry for checkin path", "user_id", st.userID, "error", err)
	}

	st.terminated = true
	return ctx, nil
}

// planAwareGreeting composes a short reply referencing today's outstanding
// checklist items when available, falling back to a plain greeting when the
// checklist lookup fails or is empty.
func (o *Orchestrator) planAwareGreeting(ctx context.Context, st *turnState) string {
	today := time.Now().UTC().Format("2006-01-02")
	if st.settings != nil && st.settings.Timezone != "" {
		if loc, err := time.LoadLocation(st.settings.Timezone); err == nil {
			today = time.Now().In(loc).Format("2006-01-02")
		}
	}

	var pending []string
	for _, itemType := range []string{"medication", "supplement"} {
		raw, err := o.tools.CallTool(ctx, toolregistry.ToolChecklistStatus, fmt.Sprint(st.userID), mustJSON(map[string]any{
			"item_type":   itemType,
			"target_date": today,
		}))
		if err != nil {
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		items, _ := m["items"].([]domain.DailyChecklistItem)
		for _, it := range items {
			if !it.Completed {
				pending = append(pending, it.ItemName)
			}
		}
	}

	if len(pending) == 0 {
		return "Hey! Nothing pending on your checklist right now. What can I help with?"
	}
	return "Hey! Still outstanding today: " + strings.Join(pending, ", ") + ". Let me know when you've taken care of those, or ask me anything."
}
