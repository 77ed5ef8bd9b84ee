package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
)

// profileAutoSyncCategories is the fixed category set turn pipeline step 11
// names as eligible for a profile-extraction pass, independent of the
// image-assisted carve-out.
var profileAutoSyncCategories = map[intent.Category]bool{
	intent.CategoryLogSupplement: true,
	intent.CategoryAskSupplement: true,
	intent.CategoryAskMedical:    true,
	intent.CategoryAskNutrition:  true,
	intent.CategoryGeneralChat:   true,
}

const profileExtractionPrompt = `The user profile currently lists these medications: %s; supplements: %s; dietary preferences: %s; medical conditions: %s; family history: %s.

Read the message below and decide whether it reveals a profile update worth recording — a new or changed medication/supplement, a dietary preference, a medical condition, or a family history item. Do not invent anything the message doesn't support.

Respond with strict JSON: {"has_update": bool, "medications": [{"name","dose","timing"}], "supplements": [{"name","dose","timing"}], "dietary_preferences": [string], "medical_conditions": [string], "family_history": [string]}. Omit or leave empty any field with nothing new to add.

Message: %s`

type profileExtraction struct {
	HasUpdate          bool                `json:"has_update"`
	Medications        []structuredItemDTO `json:"medications"`
	Supplements        []structuredItemDTO `json:"supplements"`
	DietaryPreferences []string            `json:"dietary_preferences"`
	MedicalConditions  []string            `json:"medical_conditions"`
	FamilyHistory      []string            `json:"family_history"`
}

type structuredItemDTO struct {
	Name   string `json:"name"`
	Dose   string `json:"dose"`
	Timing string `json:"timing"`
}

// stepProfileAutoSync is turn pipeline step 11: for supplement/medical/
// nutrition/general turns (and any image-assisted message), opportunistically
// mine a profile update out of the message and apply it. Non-log categories
// additionally require the router's own confidence to clear
// Config.ProfileAutoSyncMinConfidence, since general_chat and ask_* messages
// are far more often just conversation than a disclosure worth persisting.
func (o *Orchestrator) stepProfileAutoSync(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}
	eligible := profileAutoSyncCategories[st.intentResult.Category] || st.image != nil
	if !eligible {
		return ctx, nil
	}
	if !strings.HasPrefix(string(st.intentResult.Category), "log_") && st.intentResult.Confidence < o.cfg.ProfileAutoSyncMinConfidence {
		return ctx, nil
	}
	if !st.scope.UnderBudget(o.cfg.UtilityCallBudgetNonLogTurn) {
		return ctx, nil
	}

	prompt := fmt.Sprintf(profileExtractionPrompt,
		joinOrNone(structuredItemNames(st.settings.Medications)),
		joinOrNone(structuredItemNames(st.settings.Supplements)),
		joinOrNone(st.settings.DietaryPreferences),
		joinOrNone(st.settings.MedicalConditions),
		joinOrNone(st.settings.FamilyHistory),
		st.effectiveMessage,
	)
	req := &model.Request{
		Model:      st.client.UtilityModel(),
		ModelClass: model.ModelClassSmall,
		System:     "You are a health profile extraction assistant. Return only valid JSON.",
		Messages: []*model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: prompt}}},
		},
		MaxTokens: 400,
	}
	resp, err := st.client.Complete(ctx, req)
	if err != nil {
		o.log.Warn(ctx, "profile extraction call failed", "user_id", st.userID, "error", err)
		st.fail("profile_auto_sync", err)
		return ctx, nil
	}
	st.scope.RecordUtility(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	text := strings.TrimSpace(responseText(resp))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	var extracted profileExtraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &extracted); err != nil {
		return ctx, nil
	}
	if !extracted.HasUpdate {
		return ctx, nil
	}

	for _, m := range extracted.Medications {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		payload := mustJSON(map[string]any{"item": map[string]any{"name": m.Name, "dose": m.Dose, "timing": m.Timing}})
		if _, err := o.tools.CallTool(ctx, toolregistry.ToolMedicationUpsert, fmt.Sprint(st.userID), payload); err != nil {
			o.log.Warn(ctx, "profile auto-sync medication upsert failed", "user_id", st.userID, "error", err)
			continue
		}
		st.profileMedicationNames = append(st.profileMedicationNames, m.Name)
	}
	for _, s := range extracted.Supplements {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		payload := mustJSON(map[string]any{"item": map[string]any{"name": s.Name, "dose": s.Dose, "timing": s.Timing}})
		if _, err := o.tools.CallTool(ctx, toolregistry.ToolSupplementUpsert, fmt.Sprint(st.userID), payload); err != nil {
			o.log.Warn(ctx, "profile auto-sync supplement upsert failed", "user_id", st.userID, "error", err)
			continue
		}
		st.profileSupplementNames = append(st.profileSupplementNames, s.Name)
	}

	patch := map[string]any{}
	if merged := mergeStringList(st.settings.DietaryPreferences, extracted.DietaryPreferences); len(merged) > len(st.settings.DietaryPreferences) {
		patch["dietary_preferences"] = merged
	}
	if merged := mergeStringList(st.settings.MedicalConditions, extracted.MedicalConditions); len(merged) > len(st.settings.MedicalConditions) {
		patch["medical_conditions"] = merged
	}
	if merged := mergeStringList(st.settings.FamilyHistory, extracted.FamilyHistory); len(merged) > len(st.settings.FamilyHistory) {
		patch["family_history"] = merged
	}
	if len(patch) > 0 {
		if _, err := o.tools.CallTool(ctx, toolregistry.ToolProfilePatch, fmt.Sprint(st.userID), mustJSON(map[string]any{"patch": patch})); err != nil {
			o.log.Warn(ctx, "profile auto-sync patch failed", "user_id", st.userID, "error", err)
		}
	}

	return ctx, nil
}

func structuredItemNames(items []domain.StructuredItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
