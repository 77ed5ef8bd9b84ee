package store

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// UpsertChecklistItem marks (or creates) one day's medication/supplement
// checklist entry. Repeated completions are idempotent: the unique key is
// (user_id, target_date, item_type, item_name).
func (db *DB) UpsertChecklistItem(ctx context.Context, item *domain.DailyChecklistItem) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO daily_checklist_items (user_id, target_date, item_type, item_name, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, target_date, item_type, item_name) DO UPDATE SET
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		item.UserID, item.TargetDate, string(item.ItemType), item.ItemName, boolToInt(item.Completed), item.CreatedAt.Unix(), now.Unix())
	return err
}

// ListChecklistItems returns every checklist row for the given local day and
// item type.
func (db *DB) ListChecklistItems(ctx context.Context, userID int64, targetDate string, itemType domain.ChecklistItemType) ([]domain.DailyChecklistItem, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, target_date, item_type, item_name, completed, created_at, updated_at
		FROM daily_checklist_items WHERE user_id = ? AND target_date = ? AND item_type = ? ORDER BY item_name`,
		userID, targetDate, string(itemType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecklistRows(rows)
}

// ChecklistItemsBetween returns every checklist row for the user whose
// target_date falls in [startDate, endDate] (both YYYY-MM-DD, inclusive),
// across both item types, used by the longitudinal analysis engine's
// adherence metrics.
func (db *DB) ChecklistItemsBetween(ctx context.Context, userID int64, startDate, endDate string) ([]domain.DailyChecklistItem, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, target_date, item_type, item_name, completed, created_at, updated_at
		FROM daily_checklist_items WHERE user_id = ? AND target_date >= ? AND target_date <= ? ORDER BY target_date`,
		userID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecklistRows(rows)
}

func scanChecklistRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]domain.DailyChecklistItem, error) {
	var out []domain.DailyChecklistItem
	for rows.Next() {
		var r domain.DailyChecklistItem
		var itemType string
		var completed int
		var createdAt, updatedAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.TargetDate, &itemType, &r.ItemName, &completed, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.ItemType = domain.ChecklistItemType(itemType)
		r.Completed = completed != 0
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		r.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
