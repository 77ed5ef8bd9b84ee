package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestOpenFasting_SingleOpenFast is Property 3 (Single open fast): at any
// moment, a user has at most one row with fast_end IS NULL, and ending a
// fast brings that count to zero.
func TestOpenFasting_SingleOpenFast(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	open, err := db.OpenFasting(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, open)

	row := &domain.FastingLog{UserID: 1, FastStart: time.Now().UTC().Add(-time.Hour)}
	id, err := db.StartFasting(ctx, row)
	require.NoError(t, err)

	open, err = db.OpenFasting(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, open)
	require.True(t, open.Open())
	require.Equal(t, id, open.ID)

	closed, err := db.EndFasting(ctx, id, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, closed.Open())

	open, err = db.OpenFasting(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, open)
}

// TestOpenFasting_AutoClosesStaleFastAndAllowsRestart mirrors the bug
// writetools.go's fasting handlers had to account for: a fast left open
// past domain.FastingAutoCloseAfter is forcibly closed on read, returning
// a non-nil but no-longer-open row, and a fresh fast may legitimately be
// started right after.
func TestOpenFasting_AutoClosesStaleFastAndAllowsRestart(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	staleStart := time.Now().UTC().Add(-48 * time.Hour)
	id, err := db.StartFasting(ctx, &domain.FastingLog{UserID: 7, FastStart: staleStart})
	require.NoError(t, err)

	result, err := db.OpenFasting(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, id, result.ID)
	require.False(t, result.Open(), "a fast older than FastingAutoCloseAfter must be auto-closed, not reported open")

	// A caller that only checked "!= nil" would wrongly conclude a fast is
	// still open here and refuse to start a new one.
	newID, err := db.StartFasting(ctx, &domain.FastingLog{UserID: 7, FastStart: time.Now().UTC()})
	require.NoError(t, err)
	require.NotEqual(t, id, newID)

	open, err := db.OpenFasting(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, open)
	require.True(t, open.Open())
	require.Equal(t, newID, open.ID)
}

func TestStartFasting_EndFasting_ComputesDuration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	id, err := db.StartFasting(ctx, &domain.FastingLog{UserID: 3, FastStart: start})
	require.NoError(t, err)

	end := start.Add(16 * time.Hour)
	closed, err := db.EndFasting(ctx, id, end)
	require.NoError(t, err)
	require.Equal(t, 16*60, closed.DurationMinutes)
}
