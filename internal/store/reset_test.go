package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func countRows(t *testing.T, db *DB, table string, userID int64) int {
	t.Helper()
	row := db.conn.QueryRowContext(context.Background(), `SELECT count(*) FROM `+table+` WHERE user_id = ?`, userID)
	var n int
	require.NoError(t, row.Scan(&n))
	return n
}

// TestResetUser_CascadesEveryOwnedTable exercises the ownership-cascade
// invariant: resetting a user removes every row that user owns, across
// every table that carries a user_id column, plus the users row itself.
func TestResetUser_CascadesEveryOwnedTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const uid = int64(42)

	_, err := db.conn.ExecContext(ctx, `INSERT INTO users (id, username, display_name, role, created_at) VALUES (?, 'reset-target', 'Reset Target', 'user', ?)`,
		uid, time.Now().UTC().Unix())
	require.NoError(t, err)

	_, err = db.InsertFoodLog(ctx, &domain.FoodLog{UserID: uid, LoggedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = db.InsertHydrationLog(ctx, &domain.HydrationLog{UserID: uid, LoggedAt: time.Now().UTC(), VolumeML: 250})
	require.NoError(t, err)
	_, err = db.StartFasting(ctx, &domain.FastingLog{UserID: uid, FastStart: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, db.UpsertChecklistItem(ctx, &domain.DailyChecklistItem{
		UserID: uid, TargetDate: "2026-02-21", ItemType: domain.ChecklistItemMedication, ItemName: "Lisinopril", Completed: true,
	}))
	_, _, err = db.BeginRun(ctx, uid, domain.RunDaily, time.Now().UTC(), time.Now().UTC(), "chat", false)
	require.NoError(t, err)

	require.Equal(t, 1, countRows(t, db, "food_logs", uid))
	require.Equal(t, 1, countRows(t, db, "hydration_logs", uid))
	require.Equal(t, 1, countRows(t, db, "fasting_logs", uid))
	require.Equal(t, 1, countRows(t, db, "daily_checklist_items", uid))
	require.Equal(t, 1, countRows(t, db, "analysis_runs", uid))

	require.NoError(t, db.ResetUser(ctx, uid))

	for _, table := range append([]string{}, resetOwnedTables...) {
		require.Equal(t, 0, countRows(t, db, table, uid), "table %s should have no rows left for the reset user", table)
	}

	_, err = db.GetUser(ctx, uid)
	require.Error(t, err, "users row should be gone after ResetUser")
}

func TestResetUser_NoRowsIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.ResetUser(ctx, 999))
	require.NoError(t, db.ResetUser(ctx, 999))
}

// TestResetUser_DoesNotTouchOtherUsers guards against a cascade that
// forgets its WHERE user_id = ? clause.
func TestResetUser_DoesNotTouchOtherUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.InsertFoodLog(ctx, &domain.FoodLog{UserID: 1, LoggedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = db.InsertFoodLog(ctx, &domain.FoodLog{UserID: 2, LoggedAt: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, db.ResetUser(ctx, 1))

	require.Equal(t, 0, countRows(t, db, "food_logs", 1))
	require.Equal(t, 1, countRows(t, db, "food_logs", 2))
}
