package toolregistry

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
)

func itemTypeFromStr(s string) domain.ChecklistItemType {
	if s == string(domain.ChecklistItemMedication) {
		return domain.ChecklistItemMedication
	}
	return domain.ChecklistItemSupplement
}

// Read tool identifiers, matching the tool catalogue's read-only tool catalogue.
const (
	ToolProfileRead                tools.Ident = "profile_read"
	ToolMedicationResolveReference tools.Ident = "medication_resolve_reference"
	ToolSupplementResolveReference tools.Ident = "supplement_resolve_reference"
	ToolMealTemplateList           tools.Ident = "meal_template_list"
	ToolMealTemplateGet            tools.Ident = "meal_template_get"
	ToolMealTemplateResolveName    tools.Ident = "meal_template_resolve_name"
	ToolChecklistStatus            tools.Ident = "checklist_status"
)

// RegisterReadTools attaches the read-only tool set to reg. These never
// require an open write transaction, per ToolSpec.ReadOnly.
// Grounded on original_source/backend/tools/health_tools.py's _tool_* family.
func RegisterReadTools(reg *Registry, store Store) {
	reg.Register(tools.ToolSpec{
		Name:        ToolProfileRead,
		Description: "Read the current user's profile and settings.",
		ReadOnly:    true,
		AICallable:  true,
	}, handleProfileRead(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolMedicationResolveReference,
		Description:    "Resolve a loose medication reference (e.g. \"my BP med\") to matching entries.",
		RequiredFields: []string{"query"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleResolveReference(store, ToolMedicationResolveReference, true))

	reg.Register(tools.ToolSpec{
		Name:           ToolSupplementResolveReference,
		Description:    "Resolve a loose supplement reference to matching entries.",
		RequiredFields: []string{"query"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleResolveReference(store, ToolSupplementResolveReference, false))

	reg.Register(tools.ToolSpec{
		Name:        ToolMealTemplateList,
		Description: "List the user's saved meal templates.",
		ReadOnly:    true,
		AICallable:  true,
	}, handleMealTemplateList(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolMealTemplateGet,
		Description: "Fetch one meal template by id or name.",
		ReadOnly:    true,
		AICallable:  true,
	}, handleMealTemplateGet(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolMealTemplateResolveName,
		Description:    "Resolve a loose meal name against saved templates.",
		RequiredFields: []string{"query"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleMealTemplateResolveName(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolChecklistStatus,
		Description:    "Read today's (or a given date's) medication/supplement checklist status.",
		RequiredFields: []string{"item_type"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleChecklistStatus(store))
}

func handleProfileRead(store Store) Handler {
	return func(ctx context.Context, userID string, _ map[string]any) (any, error) {
		s, err := loadSettings(ctx, store, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"age":                  s.AgeYears,
			"sex":                  s.Sex,
			"height_cm":            s.HeightCM,
			"current_weight_kg":    s.WeightKG,
			"goal_weight_kg":       s.GoalWeight,
			"height_unit":          s.HeightUnit,
			"weight_unit":          s.WeightUnit,
			"hydration_unit":       s.HydrationUnit,
			"fitness_level":        s.FitnessLevel,
			"timezone":             s.Timezone,
			"medical_conditions":   s.MedicalConditions,
			"dietary_preferences":  s.DietaryPreferences,
			"health_goals":         s.HealthGoals,
			"family_history":       s.FamilyHistory,
			"medications":          s.Medications,
			"supplements":          s.Supplements,
		}, nil
	}
}

func handleResolveReference(store Store, tool tools.Ident, medication bool) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		query := toStr(payload["query"])
		if query == "" {
			return nil, tools.NewExecutionError(tool, "`query` is required")
		}
		s, err := loadSettings(ctx, store, userID)
		if err != nil {
			return nil, err
		}
		items := s.Supplements
		if medication {
			items = s.Medications
		}
		q := strings.ToLower(query)
		var matches []map[string]any
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Name), q) || strings.Contains(q, strings.ToLower(item.Name)) {
				matches = append(matches, map[string]any{"name": item.Name, "dose": item.Dose, "timing": item.Timing})
			}
		}
		return map[string]any{"query": query, "matches": matches}, nil
	}
}

func handleMealTemplateList(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		tmpl, err := store.FindMealTemplate(ctx, uid, "")
		if err != nil {
			return map[string]any{"templates": []any{}}, nil
		}
		if tmpl == nil {
			return map[string]any{"templates": []any{}}, nil
		}
		return map[string]any{"templates": []any{tmpl}}, nil
	}
}

func handleMealTemplateGet(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		name := toStr(payload["template_name"])
		if name == "" {
			if idStr := toStr(payload["template_id"]); idStr != "" {
				if _, err := strconv.ParseInt(idStr, 10, 64); err != nil {
					return nil, tools.NewExecutionError(ToolMealTemplateGet, "`template_id` must be an integer")
				}
			} else {
				return nil, tools.NewExecutionError(ToolMealTemplateGet, "provide `template_id` or `template_name`")
			}
		}
		tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(name))
		if err != nil || tmpl == nil {
			return nil, tools.NewExecutionError(ToolMealTemplateGet, "meal template not found")
		}
		return map[string]any{"template": tmpl}, nil
	}
}

func handleMealTemplateResolveName(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		query := toStr(payload["query"])
		if query == "" {
			return nil, tools.NewExecutionError(ToolMealTemplateResolveName, "`query` is required")
		}
		uid := parseUserID(userID)
		tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(query))
		if err != nil || tmpl == nil {
			return map[string]any{"query": query, "matches": []any{}}, nil
		}
		return map[string]any{"query": query, "matches": []any{tmpl}}, nil
	}
}

func handleChecklistStatus(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		itemTypeStr := strings.ToLower(toStr(payload["item_type"]))
		if itemTypeStr != "medication" && itemTypeStr != "supplement" {
			return nil, tools.NewExecutionError(ToolChecklistStatus, "`item_type` must be medication or supplement")
		}
		targetDate := toStr(payload["target_date"])
		if targetDate == "" {
			targetDate = time.Now().UTC().Format("2006-01-02")
		} else if !dateRe.MatchString(targetDate) {
			return nil, tools.NewExecutionError(ToolChecklistStatus, "`target_date` must be YYYY-MM-DD")
		}
		uid := parseUserID(userID)
		items, err := store.ListChecklistItems(ctx, uid, targetDate, itemTypeFromStr(itemTypeStr))
		if err != nil {
			return nil, err
		}
		return map[string]any{"item_type": itemTypeStr, "target_date": targetDate, "items": items}, nil
	}
}
