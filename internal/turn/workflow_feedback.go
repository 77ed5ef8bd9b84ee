package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
)

var feedbackSignalWords = []string{
	"bug", "broken", "doesn't work", "doesnt work", "not working", "glitch", "crash", "error when",
	"feature request", "it would be nice", "could you add", "please add", "wish it", "suggestion:",
}

func hasFeedbackSignal(msg string) bool {
	lower := strings.ToLower(msg)
	for _, w := range feedbackSignalWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

const feedbackExtractionPrompt = `Extract a bug report or enhancement request from the user's message below, if one genuinely exists. Respond with strict JSON: {"has_feedback": bool, "kind": "bug"|"enhancement", "title": string, "description": string}. If there is no real feedback, set has_feedback to false and leave the other fields empty.

Message: %s`

// stepAutoFeedbackCapture is turn pipeline step 7: opportunistically mine a
// bug report or feature request out of the message and persist it,
// deduplicating near-identical titles raised again within 30 minutes.
func (o *Orchestrator) stepAutoFeedbackCapture(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated {
		return ctx, nil
	}
	if !hasFeedbackSignal(st.rawMessage) {
		return ctx, nil
	}
	if !st.scope.UnderBudget(o.cfg.UtilityCallBudgetNonLogTurn) {
		return ctx, nil
	}

	req := &model.Request{
		Model:      st.client.UtilityModel(),
		ModelClass: model.ModelClassSmall,
		System:     "You are a product feedback extraction assistant. Return only valid JSON.",
		Messages: []*model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: fmt.Sprintf(feedbackExtractionPrompt, st.rawMessage)}}},
		},
		MaxTokens: 300,
	}
	resp, err := st.client.Complete(ctx, req)
	if err != nil {
		o.log.Warn(ctx, "feedback extraction call failed", "user_id", st.userID, "error", err)
		st.fail("auto_feedback_capture", err)
		return ctx, nil
	}
	st.scope.RecordUtility(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var parsed struct {
		HasFeedback bool   `json:"has_feedback"`
		Kind        string `json:"kind"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	text := strings.TrimSpace(responseText(resp))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return ctx, nil
	}
	if !parsed.HasFeedback || strings.TrimSpace(parsed.Title) == "" {
		return ctx, nil
	}
	if parsed.Kind != "bug" && parsed.Kind != "enhancement" {
		parsed.Kind = "bug"
	}

	since := time.Now().UTC().Add(-o.cfg.FeedbackDedupeWindow)
	recent, err := o.store.RecentFeedbackEntries(ctx, st.userID, since)
	if err == nil {
		for _, r := range recent {
			if similarTitle(r.Title, parsed.Title) {
				return ctx, nil
			}
		}
	}

	entry := &domain.FeedbackEntry{
		UserID:      st.userID,
		Specialist:  st.intentResult.Specialist,
		Kind:        parsed.Kind,
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
	}
	if _, err := o.store.InsertFeedbackEntry(ctx, entry); err != nil {
		o.log.Warn(ctx, "failed to persist feedback entry", "user_id", st.userID, "error", err)
	}
	return ctx, nil
}

// similarTitle is a deliberately coarse near-duplicate check: equal after
// lowercasing and trimming punctuation, not a fuzzy string-distance match.
func similarTitle(a, b string) bool {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.Trim(s, ".!? ")
	}
	return norm(a) == norm(b)
}
