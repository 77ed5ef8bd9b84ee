package toolregistry

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/structured"
	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
)

// Write tool identifiers, matching the tool catalogue's write-tool catalogue.
const (
	ToolProfilePatch       tools.Ident = "profile_patch"
	ToolMedicationUpsert   tools.Ident = "medication_upsert"
	ToolSupplementUpsert   tools.Ident = "supplement_upsert"
	ToolMedicationSet      tools.Ident = "medication_set"
	ToolSupplementSet      tools.Ident = "supplement_set"
	ToolGoalUpsert         tools.Ident = "goal_upsert"
	ToolChecklistMarkTaken tools.Ident = "checklist_mark_taken"
	ToolVitalsLogWrite     tools.Ident = "vitals_log_write"
	ToolExerciseLogWrite   tools.Ident = "exercise_log_write"
	ToolFoodLogWrite       tools.Ident = "food_log_write"
	ToolHydrationLogWrite  tools.Ident = "hydration_log_write"
	ToolSupplementLogWrite tools.Ident = "supplement_log_write"
	ToolFastingLogStart    tools.Ident = "fasting_log_start"
	ToolFastingLogEnd      tools.Ident = "fasting_log_end"
	ToolSleepLogWrite      tools.Ident = "sleep_log_write"
)

var validSex = map[string]bool{"male": true, "female": true, "other": true}
var validHeightUnit = map[string]bool{"cm": true, "in": true}
var validWeightUnit = map[string]bool{"kg": true, "lb": true}
var validHydrationUnit = map[string]bool{"ml": true, "oz": true}
var validFitness = map[string]bool{
	"sedentary": true, "light": true, "moderate": true, "active": true, "very_active": true,
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RegisterWriteTools attaches every mutating tool to reg, bound to store.
// Grounded on original_source/backend/tools/write_tools.py's _tool_* family.
func RegisterWriteTools(reg *Registry, store Store) {
	reg.Register(tools.ToolSpec{
		Name:           ToolProfilePatch,
		Description:    "Update one or more profile/settings fields.",
		RequiredFields: []string{"patch"},
		ReadOnly:       false,
		AICallable:     true,
	}, handleProfilePatch(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolMedicationUpsert,
		Description:    "Add or update a single medication entry.",
		RequiredFields: []string{"item"},
		AICallable:     true,
	}, handleMedicationUpsert(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolSupplementUpsert,
		Description:    "Add or update a single supplement entry.",
		RequiredFields: []string{"item"},
		AICallable:     true,
	}, handleSupplementUpsert(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolMedicationSet,
		Description: "Replace the full medication list.",
		AICallable:  true,
	}, handleMedicationSet(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolSupplementSet,
		Description: "Replace the full supplement list.",
		AICallable:  true,
	}, handleSupplementSet(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolGoalUpsert,
		Description: "Add one or more health goals.",
		AICallable:  true,
	}, handleGoalUpsert(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolChecklistMarkTaken,
		Description:    "Mark a medication or supplement as taken for a day.",
		RequiredFields: []string{"item_type"},
		AICallable:     true,
	}, handleChecklistMarkTaken(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolVitalsLogWrite,
		Description: "Log vitals: weight, blood pressure, heart rate, glucose, temperature, SpO2.",
		AICallable:  true,
	}, handleVitalsLogWrite(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolExerciseLogWrite,
		Description:    "Log one exercise session.",
		RequiredFields: []string{"exercise_type"},
		AICallable:     true,
	}, handleExerciseLogWrite(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolFoodLogWrite,
		Description: "Log a meal, resolving against a saved template when the name matches.",
		AICallable:  true,
	}, handleFoodLogWrite(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolHydrationLogWrite,
		Description:    "Log fluid intake.",
		RequiredFields: []string{"volume"},
		AICallable:     true,
	}, handleHydrationLogWrite(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolSupplementLogWrite,
		Description:    "Log a single medication/supplement intake event.",
		RequiredFields: []string{"item_type", "item_name"},
		AICallable:     true,
	}, handleSupplementLogWrite(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolFastingLogStart,
		Description: "Start a fasting window.",
		AICallable:  true,
	}, handleFastingLogStart(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolFastingLogEnd,
		Description: "End the open fasting window.",
		AICallable:  true,
	}, handleFastingLogEnd(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolSleepLogWrite,
		Description:    "Log one sleep interval.",
		RequiredFields: []string{"sleep_start", "sleep_end"},
		AICallable:     true,
	}, handleSleepLogWrite(store))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if n == "" {
			return 0, false
		}
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func toStr(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func toStringList(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		seen := map[string]bool{}
		for _, item := range vv {
			s := strings.TrimSpace(fmt.Sprintf("%v", item))
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
		return out
	case string:
		parts := strings.FieldsFunc(vv, func(r rune) bool { return r == ',' })
		out := make([]string, 0, len(parts))
		seen := map[string]bool{}
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
		return out
	}
	return nil
}

func mergeStringList(existing, additions []string) []string {
	seen := map[string]bool{}
	out := append([]string{}, existing...)
	for _, e := range out {
		seen[strings.ToLower(e)] = true
	}
	for _, a := range additions {
		key := strings.ToLower(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func handleProfilePatch(store Store) Handler {
	allowed := map[string]bool{
		"age": true, "sex": true, "height_cm": true, "current_weight_kg": true,
		"goal_weight_kg": true, "height_unit": true, "weight_unit": true,
		"hydration_unit": true, "fitness_level": true, "timezone": true,
		"medical_conditions": true, "dietary_preferences": true,
		"health_goals": true, "family_history": true,
	}
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		s, err := loadSettings(ctx, store, userID)
		if err != nil {
			return nil, err
		}
		patchRaw, ok := payload["patch"].(map[string]any)
		if !ok || len(patchRaw) == 0 {
			return nil, tools.NewExecutionError(ToolProfilePatch, "`patch` must be a non-empty object")
		}
		var unknown []string
		for k := range patchRaw {
			if !allowed[k] {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			return nil, tools.NewExecutionError(ToolProfilePatch, fmt.Sprintf("unsupported fields in patch: %s", strings.Join(unknown, ", ")))
		}

		var changed []string
		for key, value := range patchRaw {
			switch key {
			case "age":
				if value == nil {
					s.AgeYears = 0
				} else {
					age, ok := toInt(value)
					if !ok || age < 1 || age > 120 {
						return nil, tools.NewExecutionError(ToolProfilePatch, "`age` must be between 1 and 120")
					}
					s.AgeYears = age
				}
				changed = append(changed, key)
			case "sex":
				v := strings.ToLower(toStr(value))
				if v == "" {
					s.Sex = ""
				} else if !validSex[v] {
					return nil, tools.NewExecutionError(ToolProfilePatch, "`sex` must be one of male, female, other")
				} else {
					s.Sex = v
				}
				changed = append(changed, key)
			case "height_cm":
				f, _ := toFloat(value)
				s.HeightCM = f
				changed = append(changed, key)
			case "current_weight_kg":
				f, _ := toFloat(value)
				s.WeightKG = f
				changed = append(changed, key)
			case "goal_weight_kg":
				f, _ := toFloat(value)
				s.GoalWeight = f
				changed = append(changed, key)
			case "height_unit":
				v := strings.ToLower(toStr(value))
				if v == "" {
					continue
				}
				if !validHeightUnit[v] {
					return nil, tools.NewExecutionError(ToolProfilePatch, "`height_unit` must be cm or in")
				}
				s.HeightUnit = domain.HeightUnit(v)
				changed = append(changed, key)
			case "weight_unit":
				v := strings.ToLower(toStr(value))
				if v == "" {
					continue
				}
				if !validWeightUnit[v] {
					return nil, tools.NewExecutionError(ToolProfilePatch, "`weight_unit` must be kg or lb")
				}
				s.WeightUnit = domain.WeightUnit(v)
				changed = append(changed, key)
			case "hydration_unit":
				v := strings.ToLower(toStr(value))
				if v == "" {
					continue
				}
				if !validHydrationUnit[v] {
					return nil, tools.NewExecutionError(ToolProfilePatch, "`hydration_unit` must be ml or oz")
				}
				s.HydrationUnit = domain.HydrationUnit(v)
				changed = append(changed, key)
			case "fitness_level":
				v := strings.ToLower(toStr(value))
				if v == "" {
					s.FitnessLevel = ""
				} else if !validFitness[v] {
					return nil, tools.NewExecutionError(ToolProfilePatch, "invalid `fitness_level`")
				} else {
					s.FitnessLevel = v
				}
				changed = append(changed, key)
			case "timezone":
				v := toStr(value)
				if v == "" {
					s.Timezone = ""
				} else if _, err := time.LoadLocation(v); err != nil {
					return nil, tools.NewExecutionError(ToolProfilePatch, fmt.Sprintf("invalid timezone %q", v))
				} else {
					s.Timezone = v
				}
				changed = append(changed, key)
			case "medical_conditions":
				s.MedicalConditions = toStringList(value)
				changed = append(changed, key)
			case "dietary_preferences":
				s.DietaryPreferences = toStringList(value)
				changed = append(changed, key)
			case "health_goals":
				s.HealthGoals = toStringList(value)
				changed = append(changed, key)
			case "family_history":
				s.FamilyHistory = toStringList(value)
				changed = append(changed, key)
			}
		}

		if err := store.SaveSettings(ctx, s); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
		return map[string]any{"changed_fields": changed}, nil
	}
}

func normalizeItemPayload(raw any) domain.StructuredItem {
	switch v := raw.(type) {
	case map[string]any:
		return domain.StructuredItem{
			Name:   toStr(v["name"]),
			Dose:   toStr(v["dose"]),
			Timing: toStr(v["timing"]),
		}
	case string:
		return structured.ToStructured(v)
	}
	return domain.StructuredItem{}
}

func handleMedicationUpsert(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		return upsertOne(ctx, store, ToolMedicationUpsert, userID, payload, true)
	}
}

func handleSupplementUpsert(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		return upsertOne(ctx, store, ToolSupplementUpsert, userID, payload, false)
	}
}

func upsertOne(ctx context.Context, store Store, tool tools.Ident, userID string, payload map[string]any, medication bool) (any, error) {
	s, err := loadSettings(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	item := normalizeItemPayload(payload["item"])
	if item.Name == "" {
		return nil, tools.NewExecutionError(tool, "`item.name` is required")
	}
	if medication && structured.IsGenericMedicationName(item.Name) {
		return nil, tools.NewExecutionError(tool, "generic medication names are not allowed; ask for the specific name")
	}
	if !medication && structured.IsGenericSupplementName(item.Name) {
		return nil, tools.NewExecutionError(tool, "generic supplement names are not allowed; ask for the specific name")
	}

	var existingJSON string
	if medication {
		existingJSON = itemsToJSON(s.Medications)
	} else {
		existingJSON = itemsToJSON(s.Supplements)
	}
	merged := structured.MergeList(existingJSON, []domain.StructuredItem{item})
	cleaned := structured.CleanupList(merged)
	items := structured.ParseList(cleaned)

	if medication {
		s.Medications = items
	} else {
		s.Supplements = items
	}
	if err := store.SaveSettings(ctx, s); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	if medication {
		return map[string]any{"medications": items}, nil
	}
	return map[string]any{"supplements": items}, nil
}

func handleMedicationSet(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		return setList(ctx, store, ToolMedicationSet, userID, payload, true)
	}
}

func handleSupplementSet(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		return setList(ctx, store, ToolSupplementSet, userID, payload, false)
	}
}

func setList(ctx context.Context, store Store, tool tools.Ident, userID string, payload map[string]any, medication bool) (any, error) {
	s, err := loadSettings(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	raw, _ := payload["items"].([]any)
	items := make([]domain.StructuredItem, 0, len(raw))
	for _, entry := range raw {
		item := normalizeItemPayload(entry)
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}

	cleaned := structured.CleanupList(itemsToJSON(items))
	parsed := structured.ParseList(cleaned)
	if medication {
		s.Medications = parsed
	} else {
		s.Supplements = parsed
	}
	if err := store.SaveSettings(ctx, s); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	if medication {
		return map[string]any{"medications": parsed}, nil
	}
	return map[string]any{"supplements": parsed}, nil
}

func itemsToJSON(items []domain.StructuredItem) string {
	if len(items) == 0 {
		return ""
	}
	return structured.MergeList("", items)
}

func handleGoalUpsert(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		s, err := loadSettings(ctx, store, userID)
		if err != nil {
			return nil, err
		}
		var values []string
		if goals, ok := payload["goals"]; ok {
			values = toStringList(goals)
		} else if goal, ok := payload["goal"]; ok {
			values = toStringList(goal)
		}
		if len(values) == 0 {
			return nil, tools.NewExecutionError(ToolGoalUpsert, "`goals` or `goal` is required")
		}
		s.HealthGoals = mergeStringList(s.HealthGoals, values)
		if err := store.SaveSettings(ctx, s); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
		return map[string]any{"health_goals": s.HealthGoals}, nil
	}
}

func resolveChecklistTargets(s *domain.UserSettings, itemType domain.ChecklistItemType, names []string, referenceQuery string) []string {
	var resolved []string
	resolved = append(resolved, names...)

	if referenceQuery != "" {
		var source []domain.StructuredItem
		if itemType == domain.ChecklistItemMedication {
			source = s.Medications
		} else {
			source = s.Supplements
		}
		q := strings.ToLower(referenceQuery)
		for _, item := range source {
			if strings.Contains(strings.ToLower(item.Name), q) {
				resolved = append(resolved, item.Name)
			}
		}
	}

	seen := map[string]bool{}
	var unique []string
	for _, name := range resolved {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, name)
	}
	return unique
}

func handleChecklistMarkTaken(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		itemTypeStr := strings.ToLower(toStr(payload["item_type"]))
		if itemTypeStr != string(domain.ChecklistItemMedication) && itemTypeStr != string(domain.ChecklistItemSupplement) {
			return nil, tools.NewExecutionError(ToolChecklistMarkTaken, "`item_type` must be medication or supplement")
		}
		itemType := domain.ChecklistItemType(itemTypeStr)

		names := toStringList(payload["names"])
		refQuery := toStr(payload["reference_query"])

		s, err := loadSettings(ctx, store, userID)
		if err != nil {
			return nil, err
		}
		targets := resolveChecklistTargets(s, itemType, names, refQuery)
		if len(targets) == 0 {
			return nil, tools.NewExecutionError(ToolChecklistMarkTaken, "no checklist targets resolved")
		}

		targetDate := toStr(payload["target_date"])
		if targetDate == "" {
			targetDate = time.Now().UTC().Format("2006-01-02")
		} else if !dateRe.MatchString(targetDate) {
			return nil, tools.NewExecutionError(ToolChecklistMarkTaken, "`target_date` must be YYYY-MM-DD")
		}

		completed := true
		if v, ok := payload["completed"]; ok {
			if b, ok := v.(bool); ok {
				completed = b
			}
		}

		uid := parseUserID(userID)
		for _, name := range targets {
			item := &domain.DailyChecklistItem{
				UserID:     uid,
				TargetDate: targetDate,
				ItemType:   itemType,
				ItemName:   name,
				Completed:  completed,
			}
			if err := store.UpsertChecklistItem(ctx, item); err != nil {
				return nil, fmt.Errorf("upsert checklist item: %w", err)
			}
		}

		return map[string]any{
			"item_type":     itemTypeStr,
			"target_date":   targetDate,
			"updated_items": targets,
			"completed":     completed,
		}, nil
	}
}

func handleVitalsLogWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		row := &domain.VitalsLog{
			UserID:   parseUserID(userID),
			LoggedAt: loggedAtOrNow(payload),
			Notes:    toStr(payload["notes"]),
		}
		if f, ok := toFloat(payload["weight_kg"]); ok {
			row.WeightKG = f
		}
		if n, ok := toInt(payload["bp_systolic"]); ok {
			row.BPSystolic = n
		}
		if n, ok := toInt(payload["bp_diastolic"]); ok {
			row.BPDiastolic = n
		}
		if n, ok := toInt(payload["heart_rate"]); ok {
			row.HeartRate = n
		}
		if f, ok := toFloat(payload["blood_glucose"]); ok {
			row.BloodGlucose = f
		}
		if f, ok := toFloat(payload["temperature_c"]); ok {
			row.TemperatureC = f
		}
		if f, ok := toFloat(payload["spo2"]); ok {
			row.SPO2 = f
		}
		if row.WeightKG == 0 && row.BPSystolic == 0 && row.BPDiastolic == 0 &&
			row.HeartRate == 0 && row.BloodGlucose == 0 && row.TemperatureC == 0 && row.SPO2 == 0 {
			return nil, tools.NewExecutionError(ToolVitalsLogWrite, "at least one vitals metric is required")
		}

		id, err := store.InsertVitalsLog(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("insert vitals log: %w", err)
		}

		if row.WeightKG != 0 {
			if s, err := store.GetSettings(ctx, row.UserID); err == nil && s != nil {
				s.WeightKG = row.WeightKG
				_ = store.SaveSettings(ctx, s)
			}
		}

		return map[string]any{"vitals_log_id": id}, nil
	}
}

func handleExerciseLogWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		exerciseType := toStr(payload["exercise_type"])
		if exerciseType == "" {
			return nil, tools.NewExecutionError(ToolExerciseLogWrite, "`exercise_type` is required")
		}
		row := &domain.ExerciseLog{
			UserID:       parseUserID(userID),
			LoggedAt:     loggedAtOrNow(payload),
			ExerciseType: exerciseType,
			Intensity:    toStr(payload["intensity"]),
			Notes:        toStr(payload["notes"]),
		}
		if n, ok := toInt(payload["duration_minutes"]); ok {
			row.DurationMinutes = n
		}
		if f, ok := toFloat(payload["calories_burned"]); ok {
			row.CaloriesKcal = f
		}
		id, err := store.InsertExerciseLog(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("insert exercise log: %w", err)
		}
		return map[string]any{"exercise_log_id": id}, nil
	}
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)

func normalizeMealName(text string) string {
	t := strings.ToLower(text)
	t = nonAlnumRe.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

func handleFoodLogWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		mealLabel := toStr(payload["meal_label"])

		var items []domain.FoodItem
		switch v := payload["items"].(type) {
		case []any:
			for _, entry := range v {
				if m, ok := entry.(map[string]any); ok {
					items = append(items, domain.FoodItem{Name: toStr(m["name"]), Quantity: toStr(m["quantity"])})
				} else if s, ok := entry.(string); ok && s != "" {
					items = append(items, domain.FoodItem{Name: s})
				}
			}
		case string:
			if v != "" {
				items = append(items, domain.FoodItem{Name: v})
			}
		}

		queryName := toStr(payload["template_name"])
		if queryName == "" {
			queryName = mealLabel
		}
		if queryName == "" && len(items) > 0 {
			queryName = items[0].Name
		}

		useTemplate := true
		if v, ok := payload["use_template_if_found"]; ok {
			if b, ok := v.(bool); ok {
				useTemplate = b
			}
		}

		if queryName != "" {
			tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(queryName))
			if err == nil && tmpl != nil && useTemplate {
				servings := 1.0
				if f, ok := toFloat(payload["servings"]); ok {
					servings = f
				}
				if servings <= 0 {
					return nil, tools.NewExecutionError(ToolFoodLogWrite, "`servings` must be > 0")
				}
				base := tmpl.BaseServings
				if base == 0 {
					base = 1.0
				}
				mult := servings / base

				label := mealLabel
				if label == "" {
					label = tmpl.Name
				}
				row := &domain.FoodLog{
					UserID:         uid,
					LoggedAt:       loggedAtOrNow(payload),
					MealLabel:      label,
					Items:          tmpl.Ingredients,
					CaloriesKcal:   tmpl.CaloriesKcal * mult,
					ProteinG:       tmpl.ProteinG * mult,
					CarbsG:         tmpl.CarbsG * mult,
					FatG:           tmpl.FatG * mult,
					Servings:       servings,
					MealTemplateID: &tmpl.ID,
					Notes:          toStr(payload["notes"]),
				}
				id, err := store.InsertFoodLog(ctx, row)
				if err != nil {
					return nil, fmt.Errorf("insert food log: %w", err)
				}
				return map[string]any{"food_log_id": id, "used_template": true, "meal_template_id": tmpl.ID}, nil
			}
		}

		row := &domain.FoodLog{
			UserID:    uid,
			LoggedAt:  loggedAtOrNow(payload),
			MealLabel: mealLabel,
			Items:     items,
			Notes:     toStr(payload["notes"]),
		}
		if f, ok := toFloat(payload["calories"]); ok {
			row.CaloriesKcal = f
		}
		if f, ok := toFloat(payload["protein_g"]); ok {
			row.ProteinG = f
		}
		if f, ok := toFloat(payload["carbs_g"]); ok {
			row.CarbsG = f
		}
		if f, ok := toFloat(payload["fat_g"]); ok {
			row.FatG = f
		}
		if f, ok := toFloat(payload["fiber_g"]); ok {
			row.FiberG = f
		}
		if f, ok := toFloat(payload["sodium_mg"]); ok {
			row.SodiumMg = f
		}
		id, err := store.InsertFoodLog(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("insert food log: %w", err)
		}
		return map[string]any{"food_log_id": id, "used_template": false}, nil
	}
}

func handleHydrationLogWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		volume, ok := toFloat(payload["volume"])
		if !ok || volume <= 0 {
			return nil, tools.NewExecutionError(ToolHydrationLogWrite, "`volume` must be a positive number")
		}
		unit := strings.ToLower(toStr(payload["unit"]))
		if unit == "" {
			unit = "ml"
		}
		volumeML := volume
		switch unit {
		case "oz":
			volumeML = volume * 29.5735
		case "cup":
			volumeML = volume * 236.588
		case "ml":
		default:
			return nil, tools.NewExecutionError(ToolHydrationLogWrite, "`unit` must be ml, oz, or cup")
		}
		row := &domain.HydrationLog{
			UserID:     parseUserID(userID),
			LoggedAt:   loggedAtOrNow(payload),
			VolumeML:   volumeML,
			SourceUnit: domain.HydrationUnit(unit),
			Notes:      toStr(payload["notes"]),
		}
		id, err := store.InsertHydrationLog(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("insert hydration log: %w", err)
		}
		return map[string]any{"hydration_log_id": id, "volume_ml": volumeML}, nil
	}
}

func handleSupplementLogWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		itemTypeStr := strings.ToLower(toStr(payload["item_type"]))
		if itemTypeStr != string(domain.ChecklistItemMedication) && itemTypeStr != string(domain.ChecklistItemSupplement) {
			return nil, tools.NewExecutionError(ToolSupplementLogWrite, "`item_type` must be medication or supplement")
		}
		itemName := toStr(payload["item_name"])
		if itemName == "" {
			return nil, tools.NewExecutionError(ToolSupplementLogWrite, "`item_name` is required")
		}
		row := &domain.SupplementLog{
			UserID:   parseUserID(userID),
			LoggedAt: loggedAtOrNow(payload),
			ItemType: domain.ChecklistItemType(itemTypeStr),
			ItemName: itemName,
			Dose:     toStr(payload["dose"]),
			Notes:    toStr(payload["notes"]),
		}
		id, err := store.InsertSupplementLog(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("insert supplement log: %w", err)
		}
		return map[string]any{"supplement_log_id": id}, nil
	}
}

func handleFastingLogStart(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		if existing, err := store.OpenFasting(ctx, uid); err == nil && existing.Open() {
			return map[string]any{"fasting_log_id": existing.ID, "fast_start": existing.FastStart, "status": "already_open"}, nil
		}
		fastStart := time.Now().UTC()
		if t, ok := parseTime(toStr(payload["fast_start"])); ok {
			fastStart = t
		}
		row := &domain.FastingLog{
			UserID:    uid,
			FastStart: fastStart,
			Notes:     toStr(payload["notes"]),
		}
		id, err := store.StartFasting(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("start fasting: %w", err)
		}
		return map[string]any{"fasting_log_id": id, "fast_start": row.FastStart}, nil
	}
}

func handleFastingLogEnd(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		open, err := store.OpenFasting(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("open fasting: %w", err)
		}
		if !open.Open() {
			return map[string]any{"status": "no_active_fast"}, nil
		}
		fastEnd := time.Now().UTC()
		if t, ok := parseTime(toStr(payload["fast_end"])); ok {
			fastEnd = t
		}
		closed, err := store.EndFasting(ctx, open.ID, fastEnd)
		if err != nil {
			return nil, fmt.Errorf("end fasting: %w", err)
		}
		return map[string]any{"fasting_log_id": closed.ID, "duration_minutes": closed.DurationMinutes}, nil
	}
}

func handleSleepLogWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		start, ok1 := parseTime(toStr(payload["sleep_start"]))
		end, ok2 := parseTime(toStr(payload["sleep_end"]))
		if !ok1 || !ok2 {
			return nil, tools.NewExecutionError(ToolSleepLogWrite, "`sleep_start` and `sleep_end` must be RFC3339 timestamps")
		}
		if !end.After(start) {
			return nil, tools.NewExecutionError(ToolSleepLogWrite, "`sleep_end` must be after `sleep_start`")
		}
		row := &domain.SleepLog{
			UserID:          parseUserID(userID),
			SleepStart:      start,
			SleepEnd:        end,
			DurationMinutes: int(end.Sub(start).Minutes()),
			Notes:           toStr(payload["notes"]),
		}
		if n, ok := toInt(payload["quality"]); ok {
			row.Quality = n
		}
		id, err := store.InsertSleepLog(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("insert sleep log: %w", err)
		}
		return map[string]any{"sleep_log_id": id, "duration_minutes": row.DurationMinutes}, nil
	}
}

func loadSettings(ctx context.Context, store Store, userID string) (*domain.UserSettings, error) {
	s, err := store.GetSettings(ctx, parseUserID(userID))
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("settings not found for user %s", userID)
	}
	return s, nil
}

func parseUserID(userID string) int64 {
	var id int64
	fmt.Sscanf(userID, "%d", &id)
	return id
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// loggedAtOrNow resolves a write tool's event timestamp from an optional
// RFC3339 `logged_at` override (set by the turn pipeline's time-inference
// step), falling back to the current instant when absent or unparsable.
func loggedAtOrNow(payload map[string]any) time.Time {
	if t, ok := parseTime(toStr(payload["logged_at"])); ok {
		return t
	}
	return time.Now().UTC()
}
