package analysis

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// Store is the narrow persistence seam the longitudinal analysis engine
// depends on, satisfied by internal/store's SQLite implementation.
// Creating/resetting a run row to "running" is modeled as a single atomic
// BeginRun call rather than the find-then-insert-then-catch-IntegrityError
// dance original_source/backend/services/analysis_service.py does: SQLite's
// INSERT ... ON CONFLICT DO UPDATE makes the race-free upsert a single
// statement, so there is no reason to replicate the ORM-level optimistic
// retry here (see DESIGN.md).
type Store interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetSettings(ctx context.Context, userID int64) (*domain.UserSettings, error)
	ListActiveUserIDs(ctx context.Context) ([]int64, error)

	FoodLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.FoodLog, error)
	HydrationLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.HydrationLog, error)
	VitalsLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.VitalsLog, error)
	ExerciseLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.ExerciseLog, error)
	SleepLogsOverlapping(ctx context.Context, userID int64, start, end time.Time) ([]domain.SleepLog, error)
	FastingLogsStartingBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.FastingLog, error)
	SupplementLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.SupplementLog, error)
	ChecklistItemsBetween(ctx context.Context, userID int64, startDate, endDate string) ([]domain.DailyChecklistItem, error)
	UserMessagesBetween(ctx context.Context, userID int64, start, end time.Time, limit int) ([]domain.Message, error)

	ActiveFrameworks(ctx context.Context, userID int64) ([]domain.HealthOptimizationFramework, error)
	GetFramework(ctx context.Context, userID, frameworkID int64) (*domain.HealthOptimizationFramework, error)
	GetFrameworkByNormalizedName(ctx context.Context, userID int64, normalizedName string) (*domain.HealthOptimizationFramework, error)
	UpsertFramework(ctx context.Context, f *domain.HealthOptimizationFramework) (*domain.HealthOptimizationFramework, error)
	UpdateFramework(ctx context.Context, f *domain.HealthOptimizationFramework) error
	DeleteFramework(ctx context.Context, userID, frameworkID int64) error

	// BeginRun creates or resets-to-running the unique
	// (userID, runType, periodStart, periodEnd) run row. When an existing
	// row is already running or completed and force is false, it is
	// returned unchanged with alreadyDone=true and the caller must not
	// re-run it.
	BeginRun(ctx context.Context, userID int64, runType domain.RunType, periodStart, periodEnd time.Time, trigger string, force bool) (run *domain.AnalysisRun, alreadyDone bool, err error)
	CompleteRun(ctx context.Context, run *domain.AnalysisRun) error
	FailRun(ctx context.Context, runID int64, errMsg string) error
	LastCompletedPeriodEnd(ctx context.Context, userID int64, runType domain.RunType) (*time.Time, error)
	LatestAnalysisRun(ctx context.Context, userID int64, runType domain.RunType) (*domain.AnalysisRun, error)

	InsertProposals(ctx context.Context, proposals []*domain.AnalysisProposal) error
	PendingProposals(ctx context.Context, userID int64) ([]*domain.AnalysisProposal, error)
	UpdateProposal(ctx context.Context, p *domain.AnalysisProposal) error
	DeleteProposal(ctx context.Context, id int64) error
	GetProposal(ctx context.Context, userID, proposalID int64) (*domain.AnalysisProposal, error)
	ApprovedGuidance(ctx context.Context, userID int64, limit int) ([]domain.AnalysisProposal, error)
}
