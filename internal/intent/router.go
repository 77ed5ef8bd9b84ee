package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
)

// Result is the outcome of classifying a message.
type Result struct {
	Category   Category
	Specialist string
	Confidence float64
}

var questionStartRe = regexp.MustCompile(`^(what|how|why|when|where|can|should|could|would|is|are|do|does|did)\b`)

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func looksLikeQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	return questionStartRe.MatchString(text)
}

var planningPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bcan\s+i\s+(?:have|eat|drink|try)\b`),
	regexp.MustCompile(`\bcould\s+i\s+(?:have|eat|drink|try)\b`),
	regexp.MustCompile(`\bshould\s+i\s+(?:have|eat|drink|try)\b`),
	regexp.MustCompile(`\bwould\s+it\s+be\s+ok(?:ay)?\s+(?:to|if\s+i)\s+(?:have|eat|drink|try)\b`),
	regexp.MustCompile(`\bis\s+it\s+ok(?:ay)?\s+(?:to|if\s+i)\s+(?:have|eat|drink|try)\b`),
}

func looksLikeFoodPlanningQuestion(text string) bool {
	normalized := normalizeText(text)
	if normalized == "" || !looksLikeQuestion(normalized) {
		return false
	}
	pastLogCues := []string{
		"i had ", "i ate ", "i drank ", "my lunch was", "my breakfast was",
		"my dinner was", "just had", "just ate", "just drank",
	}
	if containsAny(normalized, pastLogCues...) {
		return false
	}
	for _, p := range planningPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// heuristicCategory is the deterministic keyword-based classifier used
// when no model call is made or the model call fails.
func heuristicCategory(message string) Category {
	text := normalizeText(message)
	isQuestion := looksLikeQuestion(text)

	intakeCues := []string{
		"intake", "profile", "my age", "my height", "my weight", "goal weight",
		"timezone", "medical condition", "health goals", "dietary preference",
	}
	if containsAny(text, intakeCues...) {
		return CategoryIntakeProfile
	}

	if containsAny(text, "start fasting", "starting fast", "begin fast", "end fast", "broke my fast", "finished fasting", "fasting") {
		return CategoryLogFasting
	}

	sleepCues := []string{"going to bed", "went to bed", "fell asleep", "woke up", "sleep", "slept"}
	if containsAny(text, sleepCues...) {
		if isQuestion {
			return CategoryAskSleep
		}
		return CategoryLogSleep
	}

	hydrationCues := []string{"drank water", "drink water", "hydration", "oz of water", "ml of water", "cups of water"}
	if containsAny(text, hydrationCues...) {
		return CategoryLogHydration
	}

	exerciseCues := []string{
		"workout", "exercise", "training", "lifted", "strength", "hiit",
		"zone 2", "run", "walk", "cycling", "swim", "yoga",
	}
	if containsAny(text, exerciseCues...) {
		if isQuestion {
			return CategoryAskExercise
		}
		return CategoryLogExercise
	}

	vitalsCues := []string{"blood pressure", " bp ", "bp ", "heart rate", " hr ", "hr ", "spo2", "glucose", "weight"}
	if containsAny(" "+text+" ", vitalsCues...) {
		if isQuestion {
			return CategoryAskMedical
		}
		return CategoryLogVitals
	}

	supplementCues := []string{
		"supplement", "supplements", "vitamin", "vitamins", "medication",
		"medications", "meds", "pill", "took my",
	}
	if containsAny(text, supplementCues...) {
		if isQuestion {
			return CategoryAskSupplement
		}
		return CategoryLogSupplement
	}

	foodLogCues := []string{
		"i ate", "i had", "i drank", "for breakfast", "for lunch", "for dinner",
		"for snack", "my breakfast was", "my lunch was", "my dinner was", "snack",
	}
	if containsAny(text, foodLogCues...) {
		if isQuestion && looksLikeFoodPlanningQuestion(text) {
			return CategoryAskNutrition
		}
		return CategoryLogFood
	}
	foodQuestionCues := []string{"meal", "coffee", "protein shake", "nutrition", "diet", "calories", "macros"}
	if isQuestion && containsAny(text, foodQuestionCues...) {
		return CategoryAskNutrition
	}

	if isQuestion {
		if containsAny(text, "food", "nutrition", "diet", "calories", "macros") {
			return CategoryAskNutrition
		}
		if containsAny(text, "med", "medication", "supplement", "vitamin", "interaction") {
			return CategoryAskSupplement
		}
		if containsAny(text, "symptom", "pain", "dizzy", "headache", "pressure", "doctor") {
			return CategoryAskMedical
		}
	}

	return CategoryGeneralChat
}

func allowedContains(allowed []string, specialist string) bool {
	for _, a := range allowed {
		if a == specialist {
			return true
		}
	}
	return false
}

func heuristicIntent(message string, forcedSpecialist string, allowed []string) Result {
	category := heuristicCategory(message)
	specialist := forcedSpecialist
	if specialist == "" {
		specialist = CategoryToSpecialist[category]
	}
	if !allowedContains(allowed, specialist) {
		specialist = "orchestrator"
	}
	return Result{Category: category, Specialist: specialist, Confidence: 0.15}
}

// ClassifyOptions configures ClassifyIntent.
type ClassifyOptions struct {
	// UserOverride forces a specialist when non-empty and not "auto".
	UserOverride string
	// AllowedSpecialists restricts which specialists may be chosen;
	// DefaultAllowedSpecialists is used when empty.
	AllowedSpecialists []string
	// AllowModelCall, when false, skips the utility-model call and uses
	// the deterministic heuristic directly (used for degraded-mode turns
	// and tests).
	AllowModelCall bool
}

// ClassifyIntent classifies message into a category and routes it to a
// specialist, preferring a utility-model call and falling back to the
// deterministic heuristic on any failure.
func ClassifyIntent(ctx context.Context, client model.Client, message string, opts ClassifyOptions, logger telemetry.Logger) Result {
	allowed := opts.AllowedSpecialists
	if len(allowed) == 0 {
		allowed = DefaultAllowedSpecialists
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	forcedSpecialist := ""
	if opts.UserOverride != "" && opts.UserOverride != "auto" {
		if allowedContains(allowed, opts.UserOverride) {
			forcedSpecialist = opts.UserOverride
		} else {
			forcedSpecialist = "orchestrator"
		}
	}

	if !opts.AllowModelCall || client == nil {
		return heuristicIntent(message, forcedSpecialist, allowed)
	}

	routingPrompt := fmt.Sprintf(RoutingPromptTemplate, strings.Join(allowed, ", "))
	req := &model.Request{
		Model:      client.UtilityModel(),
		ModelClass: model.ModelClassSmall,
		System:     "You are a classification assistant. Return only valid JSON.",
		Messages: []*model.Message{
			{
				Role:  model.RoleUser,
				Parts: []model.Part{model.TextPart{Text: fmt.Sprintf("%s\n\nMessage: %s", routingPrompt, message)}},
			},
		},
		MaxTokens: 256,
	}

	resp, err := client.Complete(ctx, req)
	if err != nil {
		logger.Warn(ctx, "intent classification failed, using deterministic fallback", "error", err)
		return heuristicIntent(message, forcedSpecialist, allowed)
	}

	text := responseText(resp)
	text = stripCodeFence(text)

	var parsed struct {
		Category   string  `json:"category"`
		Specialist string  `json:"specialist"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		logger.Warn(ctx, "intent classification returned invalid JSON, using deterministic fallback", "error", err)
		return heuristicIntent(message, forcedSpecialist, allowed)
	}

	category := Category(parsed.Category)
	if !ValidCategories[category] {
		category = heuristicCategory(message)
	}
	specialist := forcedSpecialist
	if specialist == "" {
		specialist = parsed.Specialist
	}
	if !allowedContains(allowed, specialist) {
		specialist = CategoryToSpecialist[category]
	}
	if !allowedContains(allowed, specialist) {
		specialist = "orchestrator"
	}
	confidence := parsed.Confidence
	if confidence == 0 {
		confidence = 0.5
	}
	return Result{Category: category, Specialist: specialist, Confidence: confidence}
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
	return strings.TrimSpace(b.String())
}

func stripCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return text
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}
