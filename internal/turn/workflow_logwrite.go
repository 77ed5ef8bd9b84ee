package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/logparser"
	"github.com/jmouallem/claude-longevity-sub000/internal/timeinfer"
	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
)

// stepLogParseAndWrite is turn pipeline step 9: for a log_* turn not already
// consumed by the time confirmation gate or a pure menu command, extract
// structured fields from the message, fill any missing event timestamp by
// inference, and persist the entry through the matching toolregistry write
// tool inside that tool's own transaction.
func (o *Orchestrator) stepLogParseAndWrite(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}
	category := domain.LogCategory(st.intentResult.Category)
	if !strings.HasPrefix(string(category), "log_") {
		return ctx, nil
	}

	allowModel := st.scope.UnderBudget(o.cfg.UtilityCallBudgetLogTurn)
	parsed, err := logparser.ParseLogData(ctx, st.client, st.effectiveMessage, st.intentResult.Category, logparser.Options{
		UserProfile:    profileHint(st.settings),
		AllowModelCall: allowModel,
	}, o.log)
	if err != nil {
		return ctx, fmt.Errorf("parse log data: %w", err)
	}
	if allowModel {
		st.scope.RecordUtility(0, 0)
	}
	if parsed == nil {
		return ctx, nil
	}
	if category == domain.LogSleep {
		normalizeSleepAction(parsed, st.rawMessage)
	}

	tz := "UTC"
	if st.settings != nil && st.settings.Timezone != "" {
		tz = st.settings.Timezone
	}
	now := time.Now().UTC()

	ident, payload, field, timeRes, err := o.buildLogWritePayload(category, parsed, st.rawMessage, now, tz)
	if err != nil {
		o.log.Warn(ctx, "could not build log write payload, skipping persistence", "user_id", st.userID, "category", string(category), "error", err)
		st.fail("log_parse_and_write", err)
		st.logParsed = parsed
		return ctx, nil
	}

	result, err := o.tools.CallTool(ctx, ident, fmt.Sprint(st.userID), payload)
	if err != nil {
		return ctx, fmt.Errorf("write %s log: %w", category, err)
	}
	resMap, _ := result.(map[string]any)

	st.logParsed = parsed
	st.logCategory = category
	st.logRecordID = logRecordIDFromResult(category, resMap)
	if category == domain.LogFood {
		if used, ok := resMap["used_template"].(bool); ok {
			st.foodResolvedTemplate = used
		}
	}

	if timeRes.confidence == timeinfer.ConfidenceLow && st.logRecordID != 0 {
		if err := o.queueTimeConfirmation(ctx, st.userID, category, st.logRecordID, field, timeRes); err != nil {
			o.log.Warn(ctx, "failed to queue time confirmation notification", "user_id", st.userID, "error", err)
		}
	}

	return ctx, nil
}

func profileHint(s *domain.UserSettings) string {
	if s == nil {
		return ""
	}
	var parts []string
	if len(s.DietaryPreferences) > 0 {
		parts = append(parts, "dietary preferences: "+strings.Join(s.DietaryPreferences, ", "))
	}
	if len(s.HealthGoals) > 0 {
		parts = append(parts, "goals: "+strings.Join(s.HealthGoals, ", "))
	}
	if len(s.MedicalConditions) > 0 {
		parts = append(parts, "conditions: "+strings.Join(s.MedicalConditions, ", "))
	}
	return strings.Join(parts, "; ")
}

var sleepStartCues = []string{"going to bed", "go to bed", "bedtime", "sleep now", "going to sleep", "went to bed", "fell asleep"}
var sleepEndCues = []string{"woke up", "wake up", "got up", "slept", "sleep end"}

// normalizeSleepAction is turn pipeline step 9b: the deterministic/LLM parse
// sometimes leaves action as "auto" when the clock tokens alone don't say
// whether this message is a bedtime or a wake-up report; fall back to the
// same go-to-bed/woke-up phrasing the rest of the pipeline looks for.
func normalizeSleepAction(parsed map[string]any, rawMessage string) {
	action, _ := parsed["action"].(string)
	if action != "" && action != "auto" {
		return
	}
	lower := strings.ToLower(rawMessage)
	switch {
	case containsAnyCue(lower, sleepEndCues):
		parsed["action"] = "end"
	case containsAnyCue(lower, sleepStartCues):
		parsed["action"] = "start"
	}
}

func containsAnyCue(text string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}

// timeResolution is the outcome of resolving one event-time field: either
// taken verbatim from an explicit timestamp in the parse, or filled in by
// timeinfer, in which case confidence governs whether a confirmation
// notification gets queued.
type timeResolution struct {
	eventUTC   time.Time
	confidence timeinfer.Confidence
	reason     string
}

// resolveFieldTime turns whatever the parser put in a time-ish field
// (an RFC3339 string, a bare clock token like "7:30am", or nothing at all)
// into a concrete UTC timestamp, falling back to inferring it from the raw
// message text when the field is missing or unparsable.
func resolveFieldTime(raw any, fallbackText string, now time.Time, tz string) (time.Time, timeResolution) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			t = t.UTC()
			return t, timeResolution{eventUTC: t, confidence: timeinfer.ConfidenceHigh, reason: "explicit timestamp"}
		}
		res := timeinfer.InferEventDatetime(s, &now, tz)
		return res.EventUTC, timeResolution{eventUTC: res.EventUTC, confidence: res.Confidence, reason: res.Reason}
	}
	res := timeinfer.InferEventDatetime(fallbackText, &now, tz)
	return res.EventUTC, timeResolution{eventUTC: res.EventUTC, confidence: res.Confidence, reason: res.Reason}
}

// buildLogWritePayload maps a category's parsed fields onto the matching
// write tool's payload shape, resolving the event timestamp it's missing
// along the way. It returns the tool to call, the tool's own
// TimeConfirmationField (so a low-confidence fill can be tracked back to
// the exact column a correction would rewrite), and the resolution that
// produced it.
func (o *Orchestrator) buildLogWritePayload(category domain.LogCategory, parsed map[string]any, rawMessage string, now time.Time, tz string) (tools.Ident, []byte, domain.TimeConfirmationField, timeResolution, error) {
	switch category {
	case domain.LogFood:
		t, res := resolveFieldTime(parsed["logged_at"], rawMessage, now, tz)
		payload := mustJSON(map[string]any{
			"logged_at":  t.Format(time.RFC3339),
			"meal_label": parsed["meal_label"],
			"items":      parsed["items"],
			"calories":   parsed["calories"],
			"protein_g":  parsed["protein_g"],
			"carbs_g":    parsed["carbs_g"],
			"fat_g":      parsed["fat_g"],
			"fiber_g":    parsed["fiber_g"],
			"sodium_mg":  parsed["sodium_mg"],
			"notes":      parsed["notes"],
		})
		return toolregistry.ToolFoodLogWrite, payload, domain.FieldLoggedAt, res, nil

	case domain.LogVitals:
		t, res := resolveFieldTime(parsed["logged_at"], rawMessage, now, tz)
		payload := mustJSON(map[string]any{
			"logged_at":     t.Format(time.RFC3339),
			"weight_kg":     parsed["weight_kg"],
			"bp_systolic":   parsed["bp_systolic"],
			"bp_diastolic":  parsed["bp_diastolic"],
			"heart_rate":    parsed["heart_rate"],
			"blood_glucose": parsed["blood_glucose"],
			"temperature_c": parsed["temperature_c"],
			"spo2":          parsed["spo2"],
			"notes":         parsed["notes"],
		})
		return toolregistry.ToolVitalsLogWrite, payload, domain.FieldLoggedAt, res, nil

	case domain.LogExercise:
		t, res := resolveFieldTime(parsed["logged_at"], rawMessage, now, tz)
		payload := mustJSON(map[string]any{
			"logged_at":        t.Format(time.RFC3339),
			"exercise_type":    parsed["exercise_type"],
			"duration_minutes": parsed["duration_minutes"],
			"calories_burned":  parsed["calories_burned"],
			"notes":            parsed["notes"],
		})
		return toolregistry.ToolExerciseLogWrite, payload, domain.FieldLoggedAt, res, nil

	case domain.LogHydration:
		t, res := resolveFieldTime(parsed["logged_at"], rawMessage, now, tz)
		volume, unit := hydrationVolumeAndUnit(parsed["amount_ml"])
		payload := mustJSON(map[string]any{
			"logged_at": t.Format(time.RFC3339),
			"volume":    volume,
			"unit":      unit,
			"notes":     parsed["notes"],
		})
		return toolregistry.ToolHydrationLogWrite, payload, domain.FieldLoggedAt, res, nil

	case domain.LogSupplement:
		t, res := resolveFieldTime(parsed["logged_at"], rawMessage, now, tz)
		itemType, itemName, dose := firstSupplement(parsed["supplements"])
		payload := mustJSON(map[string]any{
			"logged_at": t.Format(time.RFC3339),
			"item_type": itemType,
			"item_name": itemName,
			"dose":      dose,
			"notes":     parsed["notes"],
		})
		return toolregistry.ToolSupplementLogWrite, payload, domain.FieldLoggedAt, res, nil

	case domain.LogFasting:
		action, _ := parsed["action"].(string)
		if action == "end" {
			t, res := resolveFieldTime(parsed["fast_end"], rawMessage, now, tz)
			payload := mustJSON(map[string]any{
				"fast_end": t.Format(time.RFC3339),
				"notes":    parsed["notes"],
			})
			return toolregistry.ToolFastingLogEnd, payload, domain.FieldFastEnd, res, nil
		}
		t, res := resolveFieldTime(parsed["fast_start"], rawMessage, now, tz)
		payload := mustJSON(map[string]any{
			"fast_start": t.Format(time.RFC3339),
			"notes":      parsed["notes"],
		})
		return toolregistry.ToolFastingLogStart, payload, domain.FieldFastStart, res, nil

	case domain.LogSleep:
		return o.buildSleepPayload(parsed, rawMessage, now, tz)
	}

	return "", nil, "", timeResolution{}, fmt.Errorf("unsupported log category %q", category)
}

// buildSleepPayload requires enough information to resolve both endpoints
// of the sleep session: either both sleep_start and sleep_end, or one of
// them plus a parsed duration to derive the other. A bare "I slept well"
// with neither is too little to log and is reported back as an error so
// the turn can skip persistence rather than fabricate an interval.
func (o *Orchestrator) buildSleepPayload(parsed map[string]any, rawMessage string, now time.Time, tz string) (tools.Ident, []byte, domain.TimeConfirmationField, timeResolution, error) {
	startStr, startOK := parsed["sleep_start"].(string)
	endStr, endOK := parsed["sleep_end"].(string)
	startPresent := startOK && strings.TrimSpace(startStr) != ""
	endPresent := endOK && strings.TrimSpace(endStr) != ""
	duration, hasDuration := toIntLoose(parsed["duration_minutes"])

	var start, end time.Time
	var res timeResolution

	switch {
	case startPresent && endPresent:
		start, res = resolveFieldTime(parsed["sleep_start"], rawMessage, now, tz)
		end, _ = resolveFieldTime(parsed["sleep_end"], rawMessage, now, tz)

	case startPresent && hasDuration:
		start, res = resolveFieldTime(parsed["sleep_start"], rawMessage, now, tz)
		end = start.Add(time.Duration(duration) * time.Minute)

	case endPresent && hasDuration:
		end, res = resolveFieldTime(parsed["sleep_end"], rawMessage, now, tz)
		start = end.Add(-time.Duration(duration) * time.Minute)

	default:
		return "", nil, "", timeResolution{}, fmt.Errorf("sleep entry needs both a start and an end time")
	}

	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}

	payload := mustJSON(map[string]any{
		"sleep_start": start.Format(time.RFC3339),
		"sleep_end":   end.Format(time.RFC3339),
		"quality":     parsed["quality"],
		"notes":       parsed["notes"],
	})
	return toolregistry.ToolSleepLogWrite, payload, domain.FieldSleepEnd, res, nil
}

func toIntLoose(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// hydrationVolumeAndUnit remaps logparser's amount_ml hydration field onto
// the write tool's volume/unit pair, since the tool accepts ml/oz/cup
// directly rather than a pre-converted milliliter figure.
func hydrationVolumeAndUnit(amountML any) (float64, string) {
	f, ok := toFloatLoose(amountML)
	if !ok || f <= 0 {
		f = 250
	}
	return f, "ml"
}

func toFloatLoose(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// firstSupplement picks the first parsed supplement/medication entry to
// write (the log_supplement tool persists one item per call); any
// additional items a message named are dropped rather than silently merged
// into one row.
func firstSupplement(v any) (itemType, name, dose string) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return string(domain.ChecklistItemSupplement), "", ""
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return string(domain.ChecklistItemSupplement), "", ""
	}
	name, _ = entry["name"].(string)
	dose, _ = entry["dose"].(string)
	if strings.Contains(strings.ToLower(name), "medication") {
		return string(domain.ChecklistItemMedication), name, dose
	}
	return string(domain.ChecklistItemSupplement), name, dose
}

func logRecordIDFromResult(category domain.LogCategory, result map[string]any) int64 {
	key := map[domain.LogCategory]string{
		domain.LogFood:       "food_log_id",
		domain.LogVitals:     "vitals_log_id",
		domain.LogExercise:   "exercise_log_id",
		domain.LogHydration:  "hydration_log_id",
		domain.LogSupplement: "supplement_log_id",
		domain.LogFasting:    "fasting_log_id",
		domain.LogSleep:      "sleep_log_id",
	}[category]
	if key == "" || result == nil {
		return 0
	}
	id, _ := result[key].(int64)
	return id
}

// queueTimeConfirmation opens (or replaces) the single pending time
// confirmation notification for this log entry, per the time-confirmation/notification flow: a
// low-confidence inferred timestamp asks the user to confirm or correct it
// on their next message rather than blocking the current turn.
func (o *Orchestrator) queueTimeConfirmation(ctx context.Context, userID int64, category domain.LogCategory, recordID int64, field domain.TimeConfirmationField, res timeResolution) error {
	payload := domain.TimeConfirmationPayload{
		Kind:        domain.NotificationKindTimeConfirmation,
		Status:      domain.TimeConfirmationPending,
		Category:    category,
		RecordID:    recordID,
		Field:       field,
		InferredISO: res.eventUTC.Format(time.RFC3339),
		Reason:      res.reason,
		Confidence:  string(res.confidence),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode time confirmation payload: %w", err)
	}
	n := &domain.Notification{
		UserID:   userID,
		Category: domain.NotificationInfo,
		Title:    "Confirm logged time",
		Message:  "I wasn't fully sure when that happened. Let me know the right time if this looks off.",
		Payload:  encoded,
	}
	if prev, perr := o.store.PendingTimeConfirmation(ctx, userID, category, recordID); perr == nil && prev != nil {
		if err := o.store.MarkNotificationRead(ctx, prev); err != nil {
			return err
		}
	}
	_, err = o.store.InsertNotification(ctx, n)
	return err
}
