package toolregistry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/store"
)

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestHandleFastingLogStart_AlreadyOpenReturnsExistingRow is scenario S5:
// starting a second fast while one is already open must return the
// existing open row unchanged, never create a second concurrently-open row.
func TestHandleFastingLogStart_AlreadyOpenReturnsExistingRow(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()
	handler := handleFastingLogStart(db)

	first, err := handler(ctx, "9", map[string]any{})
	require.NoError(t, err)
	firstMap := first.(map[string]any)
	require.NotContains(t, firstMap, "status")

	second, err := handler(ctx, "9", map[string]any{})
	require.NoError(t, err)
	secondMap := second.(map[string]any)
	require.Equal(t, "already_open", secondMap["status"])
	require.Equal(t, firstMap["fasting_log_id"], secondMap["fasting_log_id"])

	open, err := db.OpenFasting(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, open)
	require.True(t, open.Open())
}

// TestHandleFastingLogEnd_NoOpenFastReturnsNeutralStatus is the
// DataIntegrity-kind behavior: ending a fast that was never started
// returns a neutral status, not an execution error.
func TestHandleFastingLogEnd_NoOpenFastReturnsNeutralStatus(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()
	handler := handleFastingLogEnd(db)

	result, err := handler(ctx, "11", map[string]any{})
	require.NoError(t, err)
	resultMap := result.(map[string]any)
	require.Equal(t, "no_active_fast", resultMap["status"])
}

func TestHandleFastingLogEnd_ClosesTheOpenFast(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()
	start := handleFastingLogStart(db)
	end := handleFastingLogEnd(db)

	_, err := start(ctx, "5", map[string]any{})
	require.NoError(t, err)

	result, err := end(ctx, "5", map[string]any{})
	require.NoError(t, err)
	resultMap := result.(map[string]any)
	require.NotEqual(t, "no_active_fast", resultMap["status"])
	require.Contains(t, resultMap, "duration_minutes")

	open, err := db.OpenFasting(ctx, 5)
	require.NoError(t, err)
	require.Nil(t, open)
}

// TestHandleFastingLogStart_AfterAutoCloseStartsFreshFast is the fix for
// writetools.go treating a non-nil-but-closed OpenFasting result as still
// open: once a stale fast is auto-closed on read, starting a new one must
// succeed rather than being refused as "already open".
func TestHandleFastingLogStart_AfterAutoCloseStartsFreshFast(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	staleStart := time.Now().UTC().Add(-48 * time.Hour)
	_, err := db.StartFasting(ctx, &domain.FastingLog{UserID: 13, FastStart: staleStart})
	require.NoError(t, err)

	handler := handleFastingLogStart(db)
	result, err := handler(ctx, "13", map[string]any{})
	require.NoError(t, err)
	resultMap := result.(map[string]any)
	require.NotEqual(t, "already_open", resultMap["status"])

	open, err := db.OpenFasting(ctx, 13)
	require.NoError(t, err)
	require.NotNil(t, open)
	require.True(t, open.Open())
}

// TestHandleChecklistMarkTaken_Idempotent is Property 2 exercised through
// the tool handler rather than the store directly.
func TestHandleChecklistMarkTaken_Idempotent(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()
	handler := handleChecklistMarkTaken(db)

	payload := map[string]any{
		"item_type":   "medication",
		"names":       []any{"Lisinopril"},
		"target_date": "2026-02-21",
		"completed":   true,
	}

	for i := 0; i < 3; i++ {
		_, err := handler(ctx, "21", payload)
		require.NoError(t, err)
	}

	rows, err := db.ListChecklistItems(ctx, 21, "2026-02-21", domain.ChecklistItemMedication)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Completed)
}
