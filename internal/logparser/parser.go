package logparser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
)

// Options configures ParseLogData.
type Options struct {
	// UserProfile is a short free-text summary appended to the extraction
	// prompt as context, mirroring the original's user_profile argument.
	UserProfile string
	// AllowModelCall, when false, skips the utility-model call entirely
	// and returns the deterministic regex parse (degraded-mode turns,
	// tests).
	AllowModelCall bool
}

// ParseLogData extracts structured data for category from message. It
// returns nil, nil when category has no associated extraction prompt (ask_*,
// intake_profile, general_chat). On any model failure it falls back to the
// deterministic regex parser rather than returning an error, since a log
// entry with partial data is more useful than none.
func ParseLogData(ctx context.Context, client model.Client, message string, category intent.Category, opts Options, logger telemetry.Logger) (map[string]any, error) {
	prompt, ok := categoryToPrompt[category]
	if !ok {
		return nil, nil
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if !opts.AllowModelCall || client == nil {
		return deterministicParseByCategory(message, category), nil
	}

	profileContext := ""
	if opts.UserProfile != "" {
		profileContext = "\nUser context: " + opts.UserProfile + "\n"
	}

	req := &model.Request{
		Model:      client.UtilityModel(),
		ModelClass: model.ModelClassSmall,
		System:     extractionSystemPrompt,
		Messages: []*model.Message{
			{
				Role:  model.RoleUser,
				Parts: []model.Part{model.TextPart{Text: fmt.Sprintf("%s%s\n\nMessage: %s", prompt, profileContext, message)}},
			},
		},
		MaxTokens: 1024,
	}

	resp, err := client.Complete(ctx, req)
	if err != nil {
		logger.Warn(ctx, "log parse model call failed, using deterministic fallback", "category", string(category), "error", err)
		return deterministicParseByCategory(message, category), nil
	}

	text := stripCodeFence(strings.TrimSpace(responseText(resp)))

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		logger.Warn(ctx, "log parse returned invalid JSON, using deterministic fallback", "category", string(category), "error", err)
		return deterministicParseByCategory(message, category), nil
	}
	return parsed, nil
}

func responseText(resp *model.Response) string {
	var b strings.Builder
	for _, msg := range resp.Content {
		for _, p := range msg.Parts {
			if tp, ok := p.(model.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
	}
	return b.String()
}

func stripCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return text
	}
	body := strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(body)
}

// Confidence is the outcome of AssessParseConfidence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var criticalFields = map[intent.Category][]string{
	intent.CategoryLogFood:       {"items"},
	intent.CategoryLogVitals:     {},
	intent.CategoryLogExercise:   {"exercise_type"},
	intent.CategoryLogSupplement: {"supplements"},
	intent.CategoryLogHydration:  {"amount_ml"},
	intent.CategoryLogSleep:      {},
	intent.CategoryLogFasting:    {},
}

var notableFields = map[intent.Category][]string{
	intent.CategoryLogFood:       {"items", "calories", "protein_g", "carbs_g", "fat_g", "fiber_g"},
	intent.CategoryLogVitals:     {"weight_kg", "bp_systolic", "bp_diastolic", "heart_rate", "blood_glucose"},
	intent.CategoryLogExercise:   {"exercise_type", "duration_minutes", "calories_burned"},
	intent.CategoryLogSupplement: {"supplements"},
	intent.CategoryLogHydration:  {"amount_ml", "source"},
	intent.CategoryLogSleep:      {"sleep_start", "sleep_end", "duration_minutes", "quality"},
	intent.CategoryLogFasting:    {"fast_start", "fast_end", "duration_minutes"},
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

// AssessParseConfidence scores a parsed result's quality and reports which
// notable fields are missing. A result carrying the deterministic fallback
// marker, or missing any critical field for its category, is always "low".
func AssessParseConfidence(parsed map[string]any, category intent.Category) (Confidence, []string) {
	notes := strings.ToLower(fmt.Sprintf("%v", parsed["notes"]))
	isFallback := strings.Contains(notes, "deterministic fallback") || strings.Contains(notes, "low-confidence")

	critical := criticalFields[category]
	notable := notableFields[category]

	var criticalMissing []string
	for _, f := range critical {
		if isEmptyValue(parsed[f]) {
			criticalMissing = append(criticalMissing, f)
		}
	}

	var notableMissing []string
	for _, f := range notable {
		if isEmptyValue(parsed[f]) {
			notableMissing = append(notableMissing, strings.ReplaceAll(f, "_", " "))
		}
	}
	notablePresentCount := len(notable) - len(notableMissing)

	if isFallback || len(criticalMissing) > 0 {
		return ConfidenceLow, notableMissing
	}
	if len(notable) > 0 && notablePresentCount <= len(notable)/2 {
		return ConfidenceMedium, notableMissing
	}
	return ConfidenceHigh, notableMissing
}
