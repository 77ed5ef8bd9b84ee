package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
)

// stepChecklistSync is turn pipeline step 12: when step 11 upserted a
// medication/supplement, or the raw message plainly names one already on
// the profile, mark today's checklist entry taken for it.
func (o *Orchestrator) stepChecklistSync(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}

	medNames := append([]string{}, st.profileMedicationNames...)
	supNames := append([]string{}, st.profileSupplementNames...)

	if raw := strings.TrimSpace(st.rawMessage); raw != "" {
		medNames = append(medNames, o.resolveChecklistNames(ctx, st, toolregistry.ToolMedicationResolveReference, raw)...)
		supNames = append(supNames, o.resolveChecklistNames(ctx, st, toolregistry.ToolSupplementResolveReference, raw)...)
	}

	today := checklistTargetDate(st)
	if len(medNames) > 0 {
		o.markChecklistTaken(ctx, st, "medication", medNames, today)
	}
	if len(supNames) > 0 {
		o.markChecklistTaken(ctx, st, "supplement", supNames, today)
	}
	return ctx, nil
}

func (o *Orchestrator) resolveChecklistNames(ctx context.Context, st *turnState, tool tools.Ident, query string) []string {
	result, err := o.tools.CallTool(ctx, tool, fmt.Sprint(st.userID), mustJSON(map[string]any{"query": query}))
	if err != nil {
		return nil
	}
	resMap, _ := result.(map[string]any)
	matches, _ := resMap["matches"].([]map[string]any)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if name, _ := m["name"].(string); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (o *Orchestrator) markChecklistTaken(ctx context.Context, st *turnState, itemType string, names []string, targetDate string) {
	payload := mustJSON(map[string]any{
		"item_type":   itemType,
		"names":       names,
		"target_date": targetDate,
		"completed":   true,
	})
	if _, err := o.tools.CallTool(ctx, toolregistry.ToolChecklistMarkTaken, fmt.Sprint(st.userID), payload); err != nil {
		o.log.Warn(ctx, "checklist sync failed", "user_id", st.userID, "item_type", itemType, "error", err)
	}
}

func checklistTargetDate(st *turnState) string {
	today := time.Now().UTC().Format("2006-01-02")
	if st.settings != nil && st.settings.Timezone != "" {
		if loc, err := time.LoadLocation(st.settings.Timezone); err == nil {
			today = time.Now().In(loc).Format("2006-01-02")
		}
	}
	return today
}
