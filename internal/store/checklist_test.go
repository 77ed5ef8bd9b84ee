package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// TestUpsertChecklistItem_Idempotent is Property 2 (Idempotent checklist):
// repeated checklist_mark_taken(completed=true) calls for the same
// (user, target_date, item_type, item_name) key yield exactly one row with
// completed=true.
func TestUpsertChecklistItem_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	item := func() *domain.DailyChecklistItem {
		return &domain.DailyChecklistItem{
			UserID:     1,
			TargetDate: "2026-02-21",
			ItemType:   domain.ChecklistItemMedication,
			ItemName:   "Lisinopril",
			Completed:  true,
		}
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, db.UpsertChecklistItem(ctx, item()))
	}

	rows, err := db.ListChecklistItems(ctx, 1, "2026-02-21", domain.ChecklistItemMedication)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Completed)
}

func TestUpsertChecklistItem_DistinctItemNamesDoNotCollide(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertChecklistItem(ctx, &domain.DailyChecklistItem{
		UserID: 1, TargetDate: "2026-02-21", ItemType: domain.ChecklistItemMedication, ItemName: "Lisinopril", Completed: true,
	}))
	require.NoError(t, db.UpsertChecklistItem(ctx, &domain.DailyChecklistItem{
		UserID: 1, TargetDate: "2026-02-21", ItemType: domain.ChecklistItemMedication, ItemName: "Metformin", Completed: true,
	}))

	rows, err := db.ListChecklistItems(ctx, 1, "2026-02-21", domain.ChecklistItemMedication)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestUpsertChecklistItem_CompletedFalseThenTrueEndsTrue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := domain.DailyChecklistItem{
		UserID: 1, TargetDate: "2026-02-21", ItemType: domain.ChecklistItemSupplement, ItemName: "Vitamin D3",
	}
	notYet := base
	notYet.Completed = false
	require.NoError(t, db.UpsertChecklistItem(ctx, &notYet))

	taken := base
	taken.Completed = true
	require.NoError(t, db.UpsertChecklistItem(ctx, &taken))

	rows, err := db.ListChecklistItems(ctx, 1, "2026-02-21", domain.ChecklistItemSupplement)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Completed)
}
