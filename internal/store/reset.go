package store

import (
	"context"
	"fmt"
)

// resetOwnedTables lists every table holding rows exclusively owned by a
// single user, in an order that respects the schema's declared foreign
// keys (meal_template_versions before meal_templates, analysis_proposals
// before analysis_runs). websearch_cache is deliberately absent: its rows
// are keyed by query text, not by user, and are shared across the process.
var resetOwnedTables = []string{
	"meal_response_signals",
	"meal_templates",
	"analysis_proposals",
	"analysis_runs",
	"food_logs",
	"hydration_logs",
	"vitals_logs",
	"exercise_logs",
	"supplement_logs",
	"fasting_logs",
	"sleep_logs",
	"daily_checklist_items",
	"messages",
	"health_optimization_frameworks",
	"notifications",
	"request_telemetry_events",
	"ai_turn_telemetry",
	"feedback_entries",
	"user_settings",
}

// meal_template_versions has no user_id column of its own; it cascades off
// meal_templates.id instead, so it needs the join-based delete below rather
// than the plain "WHERE user_id = ?" every other owned table uses.
const deleteMealTemplateVersions = `DELETE FROM meal_template_versions WHERE meal_template_id IN (SELECT id FROM meal_templates WHERE user_id = ?)`

// ResetUser deletes every row owned by userID across the schema, in a
// single transaction, then removes the users row itself. It is the
// concrete cascade the ownership invariant in the data model promises:
// deleting or resetting a user must never leave orphaned logs, templates,
// analysis history, or telemetry behind.
//
// ResetUser is idempotent: resetting a user with no rows in any owned
// table succeeds and deletes nothing.
func (db *DB) ResetUser(ctx context.Context, userID int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: reset user %d: begin: %w", userID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteMealTemplateVersions, userID); err != nil {
		return fmt.Errorf("store: reset user %d: meal_template_versions: %w", userID, err)
	}

	for _, table := range resetOwnedTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?`, table), userID); err != nil {
			return fmt.Errorf("store: reset user %d: %s: %w", userID, table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("store: reset user %d: users: %w", userID, err)
	}

	return tx.Commit()
}
