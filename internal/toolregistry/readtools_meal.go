package toolregistry

import (
	"context"

	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
)

// Read tool identifiers continuing the tool catalogue's read-only tool catalogue.
const (
	ToolMealTemplateVersions tools.Ident = "meal_template_versions"
	ToolMealResponseInsights tools.Ident = "meal_response_insights"
	ToolNotificationList     tools.Ident = "notification_list"
)

// RegisterMealAndNotificationReadTools attaches the edit-history,
// post-meal-signal, and notification listing read tools to reg.
func RegisterMealAndNotificationReadTools(reg *Registry, store Store) {
	reg.Register(tools.ToolSpec{
		Name:           ToolMealTemplateVersions,
		Description:    "List a meal template's edit history, newest first.",
		RequiredFields: []string{"template_name"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleMealTemplateVersions(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolMealResponseInsights,
		Description:    "List reported post-meal energy/GI signals for a template.",
		RequiredFields: []string{"template_name"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleMealResponseInsights(store))

	reg.Register(tools.ToolSpec{
		Name:        ToolNotificationList,
		Description: "List the user's unread notifications.",
		ReadOnly:    true,
		AICallable:  true,
	}, handleNotificationList(store))
}

func handleMealTemplateVersions(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		name := toStr(payload["template_name"])
		if name == "" {
			return nil, tools.NewExecutionError(ToolMealTemplateVersions, "`template_name` is required")
		}
		tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(name))
		if err != nil || tmpl == nil {
			return nil, tools.NewExecutionError(ToolMealTemplateVersions, "meal template not found")
		}
		versions, err := store.MealTemplateVersions(ctx, tmpl.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"meal_template_id": tmpl.ID, "versions": versions}, nil
	}
}

func handleMealResponseInsights(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		name := toStr(payload["template_name"])
		if name == "" {
			return nil, tools.NewExecutionError(ToolMealResponseInsights, "`template_name` is required")
		}
		tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(name))
		if err != nil || tmpl == nil {
			return nil, tools.NewExecutionError(ToolMealResponseInsights, "meal template not found")
		}
		signals, err := store.MealResponseSignalsForTemplate(ctx, tmpl.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"meal_template_id": tmpl.ID, "signals": signals}, nil
	}
}

func handleNotificationList(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		notifications, err := store.UnreadNotifications(ctx, uid)
		if err != nil {
			return nil, err
		}
		return map[string]any{"notifications": notifications}, nil
	}
}
