package logparser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
)

const fallbackNote = "Deterministic fallback parse"

var (
	timeTokenRe     = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s?(?:am|pm)?)\b`)
	timeHourOnlyRe  = regexp.MustCompile(`(?i)\b(\d{1,2}\s?(?:am|pm))\b`)
	calorieRe       = regexp.MustCompile(`(?i)(\d{1,4})\s*(k?cal|calories?)\b`)
	bpRe            = regexp.MustCompile(`\b(\d{2,3})\s*/\s*(\d{2,3})\b`)
	weightRe        = regexp.MustCompile(`(?i)\b(\d{2,3}(?:\.\d+)?)\s*(kg|lb|lbs)\b`)
	heartRateRe     = regexp.MustCompile(`(?i)(?:heart rate|hr)\s*(?:is|at|:)?\s*(\d{2,3})\b`)
	durationRe      = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(min|mins|minutes)\b`)
	hydrationAmtRe  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(ml|milliliters?|l|liters?|oz|ounces?|cup|cups|glass|glasses|bottle|bottles)\b`)
	splitCommaAndRe = regexp.MustCompile(`(?i),|\band\b`)
	forMealRe       = regexp.MustCompile(`(?i)\b(for (breakfast|lunch|dinner|snack))\b`)
)

func normalizeText(value string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
}

func extractTimeToken(message string) string {
	if m := timeTokenRe.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := timeHourOnlyRe.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractTimeTokens(message string) []string {
	combined := regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s?(?:am|pm)?|\d{1,2}\s?(?:am|pm))\b`)
	matches := combined.FindAllStringSubmatch(message, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		token := strings.TrimSpace(m[1])
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

var clockTokenRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// clockTokenToMinutes parses a clock token ("7:30am", "7am", "19:30") into
// minutes since local midnight, matching the original's strptime cascade.
func clockTokenToMinutes(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	text := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(token), ".", ""))
	text = strings.ReplaceAll(text, " ", "")
	m := clockTokenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := m[3]
	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if meridiem == "pm" && hour != 12 {
			hour += 12
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
	} else if hour > 23 {
		return 0, false
	}
	if minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func durationMinutesFromTokens(startToken, endToken string) (int, bool) {
	startMin, ok1 := clockTokenToMinutes(startToken)
	endMin, ok2 := clockTokenToMinutes(endToken)
	if !ok1 || !ok2 {
		return 0, false
	}
	if endMin < startMin {
		endMin += 24 * 60
	}
	d := endMin - startMin
	if d < 0 {
		d = 0
	}
	return d, true
}

func splitItems(base string) []string {
	var names []string
	for _, raw := range splitCommaAndRe.Split(base, -1) {
		name := strings.Trim(normalizeText(raw), " .")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func deterministicFoodParse(message string) map[string]any {
	text := normalizeText(message)
	lowered := strings.ToLower(text)

	mealLabel := "Meal"
	switch {
	case strings.Contains(lowered, "breakfast"):
		mealLabel = "Breakfast"
	case strings.Contains(lowered, "lunch"):
		mealLabel = "Lunch"
	case strings.Contains(lowered, "dinner"):
		mealLabel = "Dinner"
	case strings.Contains(lowered, "snack"):
		mealLabel = "Snack"
	}

	base := text
	for _, cue := range []string{"i had ", "i ate ", "for breakfast", "for lunch", "for dinner"} {
		idx := strings.Index(lowered, cue)
		if idx >= 0 && strings.HasPrefix(cue, "i ") {
			base = text[idx+len(cue):]
			break
		}
	}
	base = strings.Trim(forMealRe.ReplaceAllString(base, ""), " .")
	if base == "" {
		base = text
	}

	names := splitItems(base)
	items := make([]map[string]any, 0, len(names))
	for _, name := range names {
		items = append(items, map[string]any{"name": name, "quantity": "", "unit": ""})
	}
	if len(items) == 0 {
		items = append(items, map[string]any{"name": base, "quantity": "", "unit": ""})
	}

	var calories any
	if m := calorieRe.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			calories = v
		}
	}

	return map[string]any{
		"logged_at":  stringOrNil(extractTimeToken(message)),
		"meal_label": mealLabel,
		"items":      items,
		"calories":   calories,
		"protein_g":  nil,
		"carbs_g":    nil,
		"fat_g":      nil,
		"fiber_g":    nil,
		"sodium_mg":  nil,
		"notes":      fallbackNote,
	}
}

func deterministicVitalsParse(message string) map[string]any {
	lowered := strings.ToLower(message)

	var bpSys, bpDia any
	if m := bpRe.FindStringSubmatch(lowered); m != nil {
		s, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		bpSys, bpDia = s, d
	}

	var weight any
	if m := weightRe.FindStringSubmatch(lowered); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if strings.HasPrefix(m[2], "lb") {
			v = round3(v / 2.205)
		}
		weight = v
	}

	var hr any
	if m := heartRateRe.FindStringSubmatch(lowered); m != nil {
		v, _ := strconv.Atoi(m[1])
		hr = v
	}

	return map[string]any{
		"logged_at":     stringOrNil(extractTimeToken(message)),
		"weight_kg":     weight,
		"bp_systolic":   bpSys,
		"bp_diastolic":  bpDia,
		"heart_rate":    hr,
		"blood_glucose": nil,
		"temperature_c": nil,
		"spo2":          nil,
		"notes":         fallbackNote,
	}
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

var exerciseCueOrder = []struct{ cue, exType string }{
	{"strength", "strength"},
	{"hiit", "hiit"},
	{"walk", "walk"},
	{"run", "run"},
	{"cycling", "cycling"},
	{"bike", "cycling"},
	{"swim", "swimming"},
	{"yoga", "yoga"},
	{"mobility", "mobility"},
	{"zone 2", "zone2_cardio"},
}

func deterministicExerciseParse(message string) map[string]any {
	lowered := strings.ToLower(message)
	exerciseType := "other"
	for _, c := range exerciseCueOrder {
		if strings.Contains(lowered, c.cue) {
			exerciseType = c.exType
			break
		}
	}

	var duration any
	if m := durationRe.FindStringSubmatch(lowered); m != nil {
		v, _ := strconv.Atoi(m[1])
		duration = v
	}

	return map[string]any{
		"logged_at":        stringOrNil(extractTimeToken(message)),
		"exercise_type":    exerciseType,
		"duration_minutes": duration,
		"details":          map[string]any{},
		"max_hr":           nil,
		"avg_hr":           nil,
		"calories_burned":  nil,
		"notes":            fallbackNote,
	}
}

func deterministicSupplementParse(message string) map[string]any {
	text := normalizeText(message)
	lowered := strings.ToLower(text)
	base := text
	for _, cue := range []string{"i took ", "took my ", "had my ", "i had ", "i take "} {
		idx := strings.Index(lowered, cue)
		if idx >= 0 {
			base = text[idx+len(cue):]
			break
		}
	}
	base = strings.Trim(base, " .")
	if base == "" {
		return nil
	}

	names := splitItems(base)
	if len(names) == 0 {
		return nil
	}
	supplements := make([]map[string]any, 0, len(names))
	for _, name := range names {
		supplements = append(supplements, map[string]any{"name": name, "dose": ""})
	}

	timing := ""
	switch {
	case strings.Contains(lowered, "morning"):
		timing = "morning"
	case strings.Contains(lowered, "lunch"):
		timing = "with_meal"
	case strings.Contains(lowered, "dinner"):
		timing = "with_meal"
	case strings.Contains(lowered, "evening"), strings.Contains(lowered, "bedtime"):
		timing = "evening"
	}

	return map[string]any{
		"logged_at":   stringOrNil(extractTimeToken(message)),
		"supplements": supplements,
		"timing":      timing,
		"notes":       fallbackNote,
	}
}

func deterministicFastingParse(message string) map[string]any {
	lowered := strings.ToLower(message)
	timeTokens := extractTimeTokens(message)
	hasLastFirstMeal := strings.Contains(lowered, "last meal") && strings.Contains(lowered, "first meal") && len(timeTokens) >= 2

	action := "start"
	if hasLastFirstMeal || containsAny(lowered, "end fast", "broke my fast", "break fast", "finished fast", "stop fast", "first meal") {
		action = "end"
	}

	var fastStart, fastEnd any
	switch {
	case hasLastFirstMeal:
		fastStart, fastEnd = timeTokens[0], timeTokens[1]
	case action == "start":
		fastStart = stringOrNil(extractTimeToken(message))
	default:
		if len(timeTokens) >= 2 && strings.Contains(lowered, "from") && (strings.Contains(lowered, "to") || strings.Contains(lowered, "until") || strings.Contains(lowered, "till")) {
			fastStart, fastEnd = timeTokens[0], timeTokens[1]
		} else {
			fastEnd = stringOrNil(extractTimeToken(message))
		}
	}

	return map[string]any{
		"action":     action,
		"fast_start": fastStart,
		"fast_end":   fastEnd,
		"fast_type":  nil,
		"notes":      fallbackNote,
	}
}

var sleepStartCues = []string{"going to bed", "go to bed", "bedtime", "sleep now", "going to sleep", "went to bed", "fell asleep"}
var sleepEndCues = []string{"woke up", "wake up", "got up", "slept", "sleep end"}

func deterministicSleepParse(message string) map[string]any {
	lowered := strings.ToLower(message)
	timeTokens := extractTimeTokens(message)
	action := "auto"
	hasEndCue := containsAny(lowered, sleepEndCues...)
	hasStartCue := containsAny(lowered, sleepStartCues...)
	if hasEndCue {
		action = "end"
	} else if hasStartCue {
		action = "start"
	}

	var sleepStart, sleepEnd any
	durationStart, durationEnd := "", ""
	switch {
	case hasStartCue && hasEndCue && len(timeTokens) >= 2:
		startPos := firstIndexOfAny(lowered, sleepStartCues)
		endPos := firstIndexOfAny(lowered, sleepEndCues)
		first, second := timeTokens[0], timeTokens[1]
		if startPos != -1 && endPos != -1 && endPos < startPos {
			sleepEnd, sleepStart = first, second
			durationEnd, durationStart = first, second
		} else {
			sleepStart, sleepEnd = first, second
			durationStart, durationEnd = first, second
		}
	case action == "start" && len(timeTokens) > 0:
		sleepStart = timeTokens[0]
		durationStart = timeTokens[0]
	case action == "end" && len(timeTokens) > 0:
		sleepEnd = timeTokens[0]
		durationEnd = timeTokens[0]
	}

	var durationMinutes any
	if d, ok := durationMinutesFromTokens(durationStart, durationEnd); ok {
		durationMinutes = d
	}

	return map[string]any{
		"action":           action,
		"sleep_start":      sleepStart,
		"sleep_end":        sleepEnd,
		"duration_minutes": durationMinutes,
		"quality":          nil,
		"notes":            fallbackNote,
	}
}

func firstIndexOfAny(text string, cues []string) int {
	best := -1
	for _, cue := range cues {
		idx := strings.Index(text, cue)
		if idx == -1 {
			continue
		}
		if best == -1 || idx < best {
			best = idx
		}
	}
	return best
}

func deterministicHydrationParse(message string) map[string]any {
	lowered := strings.ToLower(message)
	amountML := 250.0
	if m := hydrationAmtRe.FindStringSubmatch(lowered); m != nil {
		value, _ := strconv.ParseFloat(m[1], 64)
		unit := m[2]
		switch {
		case strings.HasPrefix(unit, "ml"):
			amountML = value
		case strings.HasPrefix(unit, "l"):
			amountML = value * 1000
		case strings.HasPrefix(unit, "oz"), strings.HasPrefix(unit, "ounce"):
			amountML = value * 29.5735
		case strings.HasPrefix(unit, "cup"), strings.HasPrefix(unit, "glass"):
			amountML = value * 250
		case strings.HasPrefix(unit, "bottle"):
			amountML = value * 500
		}
	}

	source := "water"
	switch {
	case strings.Contains(lowered, "coffee"):
		source = "coffee"
	case strings.Contains(lowered, "tea"):
		source = "tea"
	case strings.Contains(lowered, "juice"):
		source = "juice"
	}

	return map[string]any{
		"logged_at": stringOrNil(extractTimeToken(message)),
		"amount_ml": round2(amountML),
		"source":    source,
		"notes":     fallbackNote,
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// deterministicParseByCategory is the regex-only fallback used when the
// model call is skipped, fails, or returns unusable output.
func deterministicParseByCategory(message string, category intent.Category) map[string]any {
	switch category {
	case intent.CategoryLogFood:
		return deterministicFoodParse(message)
	case intent.CategoryLogVitals:
		return deterministicVitalsParse(message)
	case intent.CategoryLogExercise:
		return deterministicExerciseParse(message)
	case intent.CategoryLogSupplement:
		return deterministicSupplementParse(message)
	case intent.CategoryLogFasting:
		return deterministicFastingParse(message)
	case intent.CategoryLogSleep:
		return deterministicSleepParse(message)
	case intent.CategoryLogHydration:
		return deterministicHydrationParse(message)
	default:
		return nil
	}
}
