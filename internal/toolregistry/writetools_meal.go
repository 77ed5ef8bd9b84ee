package toolregistry

import (
	"context"
	"encoding/json"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
)

// Meal-template and notification write tool identifiers, continuing
// the tool catalogue's write-tool catalogue.
const (
	ToolMealTemplateUpsert      tools.Ident = "meal_template_upsert"
	ToolMealTemplateArchive     tools.Ident = "meal_template_archive"
	ToolMealResponseSignalWrite tools.Ident = "meal_response_signal_write"
	ToolNotificationCreate      tools.Ident = "notification_create"
	ToolNotificationMarkRead    tools.Ident = "notification_mark_read"
)

// RegisterMealAndNotificationWriteTools attaches the menu-template,
// meal-response-signal, and notification write tools to reg.
func RegisterMealAndNotificationWriteTools(reg *Registry, store Store) {
	reg.Register(tools.ToolSpec{
		Name:           ToolMealTemplateUpsert,
		Description:    "Create or update a named meal template; versions the prior state when updating.",
		RequiredFields: []string{"name"},
		AICallable:     true,
	}, handleMealTemplateUpsert(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolMealTemplateArchive,
		Description:    "Archive a meal template so it no longer resolves for new food logs.",
		RequiredFields: []string{"name"},
		AICallable:     true,
	}, handleMealTemplateArchive(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolMealResponseSignalWrite,
		Description:    "Record a reported post-meal energy/GI response tied to a meal template or food log.",
		RequiredFields: []string{"signal"},
		AICallable:     true,
	}, handleMealResponseSignalWrite(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolNotificationCreate,
		Description:    "Create a user-facing notification.",
		RequiredFields: []string{"title", "message"},
		AICallable:     true,
	}, handleNotificationCreate(store))

	reg.Register(tools.ToolSpec{
		Name:           ToolNotificationMarkRead,
		Description:    "Mark a notification as read.",
		RequiredFields: []string{"notification_id"},
		AICallable:     true,
	}, handleNotificationMarkRead(store))
}

func handleMealTemplateUpsert(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		name := toStr(payload["name"])
		if name == "" {
			return nil, tools.NewExecutionError(ToolMealTemplateUpsert, "`name` is required")
		}

		var items []domain.FoodItem
		switch v := payload["ingredients"].(type) {
		case []any:
			for _, entry := range v {
				if m, ok := entry.(map[string]any); ok {
					items = append(items, domain.FoodItem{Name: toStr(m["name"]), Quantity: toStr(m["quantity"])})
				} else if s, ok := entry.(string); ok && s != "" {
					items = append(items, domain.FoodItem{Name: s})
				}
			}
		}

		baseServings := 1.0
		if f, ok := toFloat(payload["base_servings"]); ok && f > 0 {
			baseServings = f
		}
		calories, _ := toFloat(payload["calories_kcal"])
		protein, _ := toFloat(payload["protein_g"])
		carbs, _ := toFloat(payload["carbs_g"])
		fat, _ := toFloat(payload["fat_g"])

		t := &domain.MealTemplate{
			UserID:       uid,
			Name:         name,
			Aliases:      toStringList(payload["aliases"]),
			Ingredients:  items,
			BaseServings: baseServings,
			CaloriesKcal: calories,
			ProteinG:     protein,
			CarbsG:       carbs,
			FatG:         fat,
		}
		if err := store.UpsertMealTemplate(ctx, t, normalizeMealName(name)); err != nil {
			return nil, err
		}
		return map[string]any{"meal_template_id": t.ID}, nil
	}
}

func handleMealTemplateArchive(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		name := toStr(payload["name"])
		if name == "" {
			return nil, tools.NewExecutionError(ToolMealTemplateArchive, "`name` is required")
		}
		tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(name))
		if err != nil {
			return nil, err
		}
		if tmpl == nil {
			return map[string]any{"archived": false}, nil
		}
		tmpl.IsArchived = true
		if err := store.UpsertMealTemplate(ctx, tmpl, normalizeMealName(name)); err != nil {
			return nil, err
		}
		return map[string]any{"archived": true, "meal_template_id": tmpl.ID}, nil
	}
}

func handleMealResponseSignalWrite(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		signal := toStr(payload["signal"])
		if signal == "" {
			return nil, tools.NewExecutionError(ToolMealResponseSignalWrite, "`signal` is required")
		}
		severity, _ := toInt(payload["severity"])

		s := &domain.MealResponseSignal{
			UserID:   uid,
			Signal:   signal,
			Severity: severity,
			Notes:    toStr(payload["notes"]),
		}
		if name := toStr(payload["template_name"]); name != "" {
			if tmpl, err := store.FindMealTemplate(ctx, uid, normalizeMealName(name)); err == nil && tmpl != nil {
				id := tmpl.ID
				s.MealTemplateID = &id
			}
		}
		if v, ok := toInt(payload["food_log_id"]); ok && v > 0 {
			id := int64(v)
			s.FoodLogID = &id
		}

		id, err := store.InsertMealResponseSignal(ctx, s)
		if err != nil {
			return nil, err
		}
		return map[string]any{"meal_response_signal_id": id}, nil
	}
}

func handleNotificationCreate(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		title := toStr(payload["title"])
		message := toStr(payload["message"])
		if title == "" || message == "" {
			return nil, tools.NewExecutionError(ToolNotificationCreate, "`title` and `message` are required")
		}
		category := domain.NotificationCategory(toStr(payload["category"]))
		if category == "" {
			category = domain.NotificationInfo
		}

		var rawPayload json.RawMessage
		if p, ok := payload["payload"].(map[string]any); ok {
			if b, err := json.Marshal(p); err == nil {
				rawPayload = b
			}
		}

		n := &domain.Notification{
			UserID:   uid,
			Category: category,
			Title:    title,
			Message:  message,
			Payload:  rawPayload,
		}
		id, err := store.InsertNotification(ctx, n)
		if err != nil {
			return nil, err
		}
		return map[string]any{"notification_id": id}, nil
	}
}

func handleNotificationMarkRead(store Store) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		uid := parseUserID(userID)
		id, ok := toInt(payload["notification_id"])
		if !ok || id <= 0 {
			return nil, tools.NewExecutionError(ToolNotificationMarkRead, "`notification_id` must be a positive integer")
		}

		unread, err := store.UnreadNotifications(ctx, uid)
		if err != nil {
			return nil, err
		}
		for i := range unread {
			if unread[i].ID == int64(id) {
				if err := store.MarkNotificationRead(ctx, &unread[i]); err != nil {
					return nil, err
				}
				return map[string]any{"marked_read": true}, nil
			}
		}
		return map[string]any{"marked_read": false}, nil
	}
}
