package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/timeinfer"
)

const maxSignalNotes = 80
const maxChatNoteChars = 400
const maxChatNotes = 30

// collectNotesForSignals gathers free-text notes across every log domain
// plus recent user chat messages for window, capped at maxSignalNotes
// entries, matching _collect_notes_for_signals.
func collectNotesForSignals(ctx context.Context, store Store, userID int64, window Window, tzName string) ([]string, error) {
	start, _ := timeinfer.DayBoundsUTC(window.PeriodStart, tzName)
	_, end := timeinfer.DayBoundsUTC(window.PeriodEnd, tzName)

	var notes []string

	foods, err := store.FoodLogsBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, f := range foods {
		if n := strings.TrimSpace(f.Notes); n != "" {
			notes = append(notes, "Food note: "+n)
		}
	}
	vitals, err := store.VitalsLogsBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, v := range vitals {
		if n := strings.TrimSpace(v.Notes); n != "" {
			notes = append(notes, "Vitals note: "+n)
		}
	}
	exercise, err := store.ExerciseLogsBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, e := range exercise {
		if n := strings.TrimSpace(e.Notes); n != "" {
			notes = append(notes, "Exercise note: "+n)
		}
	}
	sleep, err := store.SleepLogsOverlapping(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, s := range sleep {
		if n := strings.TrimSpace(s.Notes); n != "" {
			notes = append(notes, "Sleep note: "+n)
		}
	}
	fasting, err := store.FastingLogsStartingBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, f := range fasting {
		if n := strings.TrimSpace(f.Notes); n != "" {
			notes = append(notes, "Fasting note: "+n)
		}
	}
	supps, err := store.SupplementLogsBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, s := range supps {
		if n := strings.TrimSpace(s.Notes); n != "" {
			notes = append(notes, "Supplement note: "+n)
		}
	}

	msgs, err := store.UserMessagesBetween(ctx, userID, start, end, maxChatNotes)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if len(content) > maxChatNoteChars {
			content = content[:maxChatNoteChars]
		}
		notes = append(notes, "Chat note: "+content)
	}

	if len(notes) > maxSignalNotes {
		notes = notes[:maxSignalNotes]
	}
	return notes, nil
}

// signalAnnotations is the utility-model output extracting short
// longitudinal signals from notes, matching UTILITY_SIGNAL_PROMPT's schema.
type signalAnnotations struct {
	EnergySignals     []string `json:"energy_signals"`
	StressSignals     []string `json:"stress_signals"`
	SymptomSignals    []string `json:"symptom_signals"`
	AdherenceSignals  []string `json:"adherence_signals"`
	Confidence        float64  `json:"confidence"`
}

func defaultSignalAnnotations() signalAnnotations {
	return signalAnnotations{Confidence: 0.2}
}

// extractSignalAnnotations calls the utility model over collected notes,
// matching _extract_signal_annotations. Returns the low-confidence default
// when there are no notes at all, same as the Python short-circuit.
func extractSignalAnnotations(ctx context.Context, client model.Client, userID int64, window Window, tzName string, store Store) (signalAnnotations, error) {
	notes, err := collectNotesForSignals(ctx, store, userID, window, tzName)
	if err != nil {
		return signalAnnotations{}, err
	}
	if len(notes) == 0 {
		return defaultSignalAnnotations(), nil
	}

	payload, err := json.Marshal(map[string]any{
		"period_start": window.PeriodStart.Format("2006-01-02"),
		"period_end":   window.PeriodEnd.Format("2006-01-02"),
		"notes":        notes,
	})
	if err != nil {
		return signalAnnotations{}, err
	}

	req := &model.Request{
		Model:      client.UtilityModel(),
		ModelClass: model.ModelClassSmall,
		System:     strictJSONSystemPrompt,
		Messages: []*model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: fmt.Sprintf("%s\n\nData:\n%s", utilitySignalPrompt, payload)}}},
		},
		MaxTokens: 1024,
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return defaultSignalAnnotations(), nil
	}

	var out signalAnnotations
	if err := json.Unmarshal([]byte(stripJSONFence(responseText(resp))), &out); err != nil {
		return defaultSignalAnnotations(), nil
	}
	return out, nil
}
