package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// TestBeginRun_WindowDedupe is Property 4 (Analysis window dedupe): two
// non-force calls with an identical (user, run_type, period_start,
// period_end) return the same AnalysisRun.id.
func TestBeginRun_WindowDedupe(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	end := start

	first, alreadyDone, err := db.BeginRun(ctx, 1, domain.RunDaily, start, end, "chat", false)
	require.NoError(t, err)
	require.False(t, alreadyDone)
	require.NoError(t, db.CompleteRun(ctx, first))

	second, alreadyDone, err := db.BeginRun(ctx, 1, domain.RunDaily, start, end, "chat", false)
	require.NoError(t, err)
	require.True(t, alreadyDone)
	require.Equal(t, first.ID, second.ID)

	rows, err := db.conn.QueryContext(ctx, `SELECT count(*) FROM analysis_runs WHERE user_id = 1 AND run_type = ?`, string(domain.RunDaily))
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	require.Equal(t, 1, count)
}

func TestBeginRun_ForceReRunsEvenWhenCompleted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	first, _, err := db.BeginRun(ctx, 1, domain.RunDaily, start, start, "chat", false)
	require.NoError(t, err)
	require.NoError(t, db.CompleteRun(ctx, first))

	again, alreadyDone, err := db.BeginRun(ctx, 1, domain.RunDaily, start, start, "chat", true)
	require.NoError(t, err)
	require.False(t, alreadyDone)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, domain.RunStatusRunning, again.Status)
}

func TestBeginRun_DistinctWindowsDoNotDedupe(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	day1 := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)

	run1, _, err := db.BeginRun(ctx, 1, domain.RunDaily, day1, day1, "chat", false)
	require.NoError(t, err)
	run2, _, err := db.BeginRun(ctx, 1, domain.RunDaily, day2, day2, "chat", false)
	require.NoError(t, err)

	require.NotEqual(t, run1.ID, run2.ID)
}
