package turn

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
)

var menuSaveCommandRe = regexp.MustCompile(`(?i)^(save|add|remember)\s+(this|that)\s+as\s+(my\s+)?(.+)$`)
var menuUpdateCommandRe = regexp.MustCompile(`(?i)^update\s+(my\s+)?(.+?)\s+(template|menu)$`)
var menuModificationCues = []string{"added", "without", "extra", "instead of", "swap", "minus", "plus"}

// stepMenuCommandDetection is turn pipeline step 8: a standalone "save/update
// menu" command with no food description of its own gets resolved against
// the user's latest logged meal rather than being routed through log
// parsing.
func (o *Orchestrator) stepMenuCommandDetection(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated {
		return ctx, nil
	}
	msg := strings.TrimSpace(st.rawMessage)

	if m := menuSaveCommandRe.FindStringSubmatch(msg); m != nil {
		st.pureMenuCommand = true
		st.menuActionNote = o.upsertTemplateFromLatestLog(ctx, st, m[4])
		return ctx, nil
	}
	if m := menuUpdateCommandRe.FindStringSubmatch(msg); m != nil {
		st.pureMenuCommand = true
		st.menuActionNote = o.upsertTemplateFromLatestLog(ctx, st, m[2])
		return ctx, nil
	}
	return ctx, nil
}

func (o *Orchestrator) upsertTemplateFromLatestLog(ctx context.Context, st *turnState, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Tell me what to call this meal and I'll save it to your menu."
	}
	latest, err := o.store.LatestFoodLog(ctx, st.userID)
	if err != nil || latest == nil {
		return fmt.Sprintf("I couldn't find a recent food log to save as %q.", name)
	}

	items := make([]map[string]any, 0, len(latest.Items))
	for _, it := range latest.Items {
		items = append(items, map[string]any{"name": it.Name, "quantity": it.Quantity})
	}
	servings := latest.Servings
	if servings <= 0 {
		servings = 1
	}
	payload := mustJSON(map[string]any{
		"name":          name,
		"ingredients":   items,
		"base_servings": servings,
		"calories_kcal": latest.CaloriesKcal,
		"protein_g":     latest.ProteinG,
		"carbs_g":       latest.CarbsG,
		"fat_g":         latest.FatG,
	})
	if _, err := o.tools.CallTool(ctx, toolregistry.ToolMealTemplateUpsert, fmt.Sprint(st.userID), payload); err != nil {
		return fmt.Sprintf("I had trouble saving %q to your menu.", name)
	}
	return fmt.Sprintf("Saved %q to your menu.", name)
}

// stepPostWriteMenuHints is turn pipeline step 10: after a food log write,
// either queue an ask to save a new meal as a template, or, if it matched an
// existing template and the message carries a modification cue, queue an ask
// to update the base template.
func (o *Orchestrator) stepPostWriteMenuHints(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}
	if st.logCategory != domain.LogFood || st.logParsed == nil {
		return ctx, nil
	}

	if !st.foodResolvedTemplate {
		st.menuFollowUpNote = "This meal wasn't matched to a saved menu item. Ask if the user wants to save it for next time."
		return ctx, nil
	}

	lower := strings.ToLower(st.rawMessage)
	for _, cue := range menuModificationCues {
		if strings.Contains(lower, cue) {
			st.menuFollowUpNote = "This meal matched a saved menu item but the message mentions a change. Ask if the user wants to update the saved template."
			break
		}
	}
	return ctx, nil
}
