package toolregistry

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
)

// ToolTimeNow is the read-only tool the turn orchestrator's time-context
// injection step (turn pipeline step 15) calls when a message matches a
// "what time is it"-style pattern, so the model gets an authoritative
// clock reading instead of inferring one from training data.
const ToolTimeNow tools.Ident = "time_now"

// RegisterTimeTool attaches time_now to reg, resolving the caller's local
// time from their configured timezone.
func RegisterTimeTool(reg *Registry, store Store) {
	reg.Register(tools.ToolSpec{
		Name:        ToolTimeNow,
		Description: "Return the current UTC and user-local date/time.",
		ReadOnly:    true,
		AICallable:  true,
	}, handleTimeNow(store))
}

func handleTimeNow(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		now := time.Now().UTC()
		out := map[string]any{
			"utc":      now.Format(time.RFC3339),
			"timezone": "UTC",
			"local":    now.Format(time.RFC3339),
		}
		settings, err := store.GetSettings(ctx, parseUserID(userID))
		if err != nil || settings == nil || settings.Timezone == "" {
			return out, nil
		}
		loc, err := time.LoadLocation(settings.Timezone)
		if err != nil {
			return out, nil
		}
		out["timezone"] = settings.Timezone
		out["local"] = now.In(loc).Format(time.RFC3339)
		return out, nil
	}
}
