package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
)

var goalSignalPhrases = []string{
	"my goal", "i want to", "i'm trying to", "im trying to", "trying to lose",
	"trying to gain", "trying to build", "aiming to", "working towards", "working on losing",
	"i'd like to", "id like to", "target weight", "new goal",
}

func hasGoalSignal(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range goalSignalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

const goalExtractionPrompt = `The user's current health goals are: %s.

The message below may state a new or refined goal. Respond with strict JSON: {"has_goal": bool, "goals": [string]}, listing only genuinely new goals (short phrases, not already covered by the existing list above). If nothing new, set has_goal to false and leave goals empty.

Message: %s`

// stepGoalSync is turn pipeline step 13: cheap keyword detection gates an
// LLM call that extracts any new health goal out of the message, merged
// into the profile's goal list and surfaced via a dynamic banner.
func (o *Orchestrator) stepGoalSync(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}
	if !hasGoalSignal(st.rawMessage) {
		return ctx, nil
	}
	if !st.scope.UnderBudget(o.cfg.UtilityCallBudgetNonLogTurn) {
		return ctx, nil
	}

	prompt := fmt.Sprintf(goalExtractionPrompt, joinOrNone(st.settings.HealthGoals), st.effectiveMessage)
	req := &model.Request{
		Model:      st.client.UtilityModel(),
		ModelClass: model.ModelClassSmall,
		System:     "You are a health goal extraction assistant. Return only valid JSON.",
		Messages: []*model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: prompt}}},
		},
		MaxTokens: 250,
	}
	resp, err := st.client.Complete(ctx, req)
	if err != nil {
		o.log.Warn(ctx, "goal extraction call failed", "user_id", st.userID, "error", err)
		st.fail("goal_sync", err)
		return ctx, nil
	}
	st.scope.RecordUtility(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var parsed struct {
		HasGoal bool     `json:"has_goal"`
		Goals   []string `json:"goals"`
	}
	text := strings.TrimSpace(responseText(resp))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return ctx, nil
	}
	if !parsed.HasGoal || len(parsed.Goals) == 0 {
		return ctx, nil
	}

	var fresh []string
	for _, g := range parsed.Goals {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if goalAlreadyCovered(st.settings.HealthGoals, g) {
			continue
		}
		fresh = append(fresh, g)
	}
	if len(fresh) == 0 {
		return ctx, nil
	}
	const maxGoalCreatesPerTurn = 3
	if len(fresh) > maxGoalCreatesPerTurn {
		fresh = fresh[:maxGoalCreatesPerTurn]
	}

	result, err := o.tools.CallTool(ctx, toolregistry.ToolGoalUpsert, fmt.Sprint(st.userID), mustJSON(map[string]any{"goals": fresh}))
	if err != nil {
		o.log.Warn(ctx, "goal upsert failed", "user_id", st.userID, "error", err)
		return ctx, nil
	}
	if _, ok := result.(map[string]any); ok {
		st.goalSyncNote = "New goal noted: " + strings.Join(fresh, ", ") + ". Acknowledge it naturally."
	}
	return ctx, nil
}

// goalAlreadyCovered is a coarse near-duplicate check on top of
// ToolGoalUpsert's own exact-match dedup: normalized equality, or enough
// shared significant words that the candidate is clearly a rephrasing
// rather than a distinct goal.
func goalAlreadyCovered(existing []string, candidate string) bool {
	cWords := significantWords(candidate)
	if len(cWords) == 0 {
		return false
	}
	for _, e := range existing {
		if similarTitle(e, candidate) {
			return true
		}
		eWords := significantWords(e)
		if len(eWords) == 0 {
			continue
		}
		shared := 0
		for w := range cWords {
			if eWords[w] {
				shared++
			}
		}
		smaller := len(cWords)
		if len(eWords) < smaller {
			smaller = len(eWords)
		}
		if smaller > 0 && float64(shared)/float64(smaller) >= 0.75 {
			return true
		}
	}
	return false
}

var goalStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "my": true, "i": true, "want": true,
	"trying": true, "im": true, "i'm": true, "of": true, "for": true, "and": true, "by": true,
}

func significantWords(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:")
		if w == "" || goalStopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}
