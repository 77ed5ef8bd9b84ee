package toolregistry

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// Store is the narrow persistence seam write and read tools depend on. It is
// satisfied by internal/store's SQLite implementation; handlers in this
// package never touch a database driver directly, injecting a storage
// interface into tool handlers rather than a concrete session/db type.
type Store interface {
	GetSettings(ctx context.Context, userID int64) (*domain.UserSettings, error)
	SaveSettings(ctx context.Context, s *domain.UserSettings) error

	UpsertChecklistItem(ctx context.Context, item *domain.DailyChecklistItem) error
	ListChecklistItems(ctx context.Context, userID int64, targetDate string, itemType domain.ChecklistItemType) ([]domain.DailyChecklistItem, error)

	InsertVitalsLog(ctx context.Context, row *domain.VitalsLog) (int64, error)
	InsertExerciseLog(ctx context.Context, row *domain.ExerciseLog) (int64, error)
	InsertFoodLog(ctx context.Context, row *domain.FoodLog) (int64, error)
	InsertHydrationLog(ctx context.Context, row *domain.HydrationLog) (int64, error)
	InsertSupplementLog(ctx context.Context, row *domain.SupplementLog) (int64, error)
	InsertSleepLog(ctx context.Context, row *domain.SleepLog) (int64, error)

	StartFasting(ctx context.Context, row *domain.FastingLog) (int64, error)
	OpenFasting(ctx context.Context, userID int64) (*domain.FastingLog, error)
	EndFasting(ctx context.Context, fastingLogID int64, end time.Time) (*domain.FastingLog, error)

	FindMealTemplate(ctx context.Context, userID int64, normalizedName string) (*domain.MealTemplate, error)
	UpsertMealTemplate(ctx context.Context, t *domain.MealTemplate, normalizedName string) error
	MealTemplateVersions(ctx context.Context, mealTemplateID int64) ([]domain.MealTemplateVersion, error)

	InsertMealResponseSignal(ctx context.Context, s *domain.MealResponseSignal) (int64, error)
	MealResponseSignalsForTemplate(ctx context.Context, mealTemplateID int64) ([]domain.MealResponseSignal, error)

	UnreadNotifications(ctx context.Context, userID int64) ([]domain.Notification, error)
	InsertNotification(ctx context.Context, n *domain.Notification) (int64, error)
	MarkNotificationRead(ctx context.Context, n *domain.Notification) error
}
