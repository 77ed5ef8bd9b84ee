// Package contextbuilder assembles the system prompt the reasoning model
// sees for a turn: a cached "stable" block (system/specialist prompt,
// identity, profile, active frameworks, meds/supps) plus per-turn sections
// (today's snapshot, approved guidance, recent summaries) selected under a
// character budget. Ported from
// original_source/backend/ai/context_builder.py.
package contextbuilder

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// Store is the narrow read seam the context builder depends on. It is
// satisfied by internal/store's SQLite implementation.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetSettings(ctx context.Context, userID int64) (*domain.UserSettings, error)
	GetSpecialistOverrides(ctx context.Context, userID int64) (*SpecialistOverrides, error)

	ActiveFrameworks(ctx context.Context, userID int64) ([]domain.HealthOptimizationFramework, error)

	FoodLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.FoodLog, error)
	HydrationLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.HydrationLog, error)
	LatestVitalsBetween(ctx context.Context, userID int64, start, end time.Time) (*domain.VitalsLog, error)
	ExerciseLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.ExerciseLog, error)
	LatestSleepOverlapping(ctx context.Context, userID int64, start, end time.Time) (*domain.SleepLog, error)
	OpenFasting(ctx context.Context, userID int64) (*domain.FastingLog, error)

	ApprovedGuidance(ctx context.Context, userID int64, limit int) ([]domain.AnalysisProposal, error)
	LatestAnalysisRun(ctx context.Context, userID int64, runType domain.RunType) (*domain.AnalysisRun, error)
}

// SpecialistOverrides carries a user's customizations to the base system
// prompt and per-specialist prompts, set through the settings UI. A zero
// value means no overrides are configured.
type SpecialistOverrides struct {
	SystemPromptOverride string
	SpecialistPrompts    map[string]string
	UpdatedAt            time.Time
}
