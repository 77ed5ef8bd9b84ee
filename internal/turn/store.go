package turn

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// Store is the narrow persistence seam the orchestrator depends on
// directly. Log and profile writes themselves go through a
// toolregistry.Registry tool call rather than this interface, routing all
// mutating work through the tool executor so the transcript records exactly
// what the model invoked; Store here covers only what sits outside that
// tool boundary (conversation history, notifications, feedback capture).
type Store interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetSettings(ctx context.Context, userID int64) (*domain.UserSettings, error)

	InsertMessage(ctx context.Context, m *domain.Message) (int64, error)
	RecentMessages(ctx context.Context, userID int64, limit int) ([]domain.Message, error)

	UnreadNotifications(ctx context.Context, userID int64) ([]domain.Notification, error)
	PendingTimeConfirmation(ctx context.Context, userID int64, category domain.LogCategory, recordID int64) (*domain.Notification, error)
	InsertNotification(ctx context.Context, n *domain.Notification) (int64, error)
	MarkNotificationRead(ctx context.Context, n *domain.Notification) error

	InsertFeedbackEntry(ctx context.Context, f *domain.FeedbackEntry) (int64, error)
	RecentFeedbackEntries(ctx context.Context, userID int64, since time.Time) ([]domain.FeedbackEntry, error)

	FindMealTemplate(ctx context.Context, userID int64, normalizedName string) (*domain.MealTemplate, error)
	LatestFoodLog(ctx context.Context, userID int64) (*domain.FoodLog, error)

	// UpdateLogEventTime rewrites the event timestamp a time confirmation
	// correction targets, in place on the row the notification references.
	UpdateLogEventTime(ctx context.Context, category domain.LogCategory, field domain.TimeConfirmationField, recordID int64, newUTC time.Time) error

	InsertTurnTelemetry(ctx context.Context, t *domain.AITurnTelemetry) error
}
