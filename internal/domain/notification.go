package domain

import (
	"encoding/json"
	"time"
)

// NotificationCategory is the closed category set for Notification.Category.
type NotificationCategory string

const (
	NotificationInfo     NotificationCategory = "info"
	NotificationReminder NotificationCategory = "reminder"
	NotificationWarning  NotificationCategory = "warning"
	NotificationSystem   NotificationCategory = "system"
)

// Notification is a per-user record with a JSON payload. The time
// confirmation flow (the time-confirmation/notification flow) encodes its state machine in
// TimeConfirmationPayload and uses Notification.IsRead as the
// pending/non-pending boundary.
type Notification struct {
	ID        int64
	UserID    int64
	Category  NotificationCategory
	Title     string
	Message   string
	Payload   json.RawMessage
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// TimeConfirmationStatus is the state machine's states, minus the implicit
// "none" state (absence of a row).
type TimeConfirmationStatus string

const (
	TimeConfirmationPending   TimeConfirmationStatus = "pending"
	TimeConfirmationConfirmed TimeConfirmationStatus = "confirmed"
	TimeConfirmationCorrected TimeConfirmationStatus = "corrected"
)

// TimeConfirmationField enumerates the row fields a correction may rewrite.
type TimeConfirmationField string

const (
	FieldLoggedAt  TimeConfirmationField = "logged_at"
	FieldFastStart TimeConfirmationField = "fast_start"
	FieldFastEnd   TimeConfirmationField = "fast_end"
	FieldSleepStart TimeConfirmationField = "sleep_start"
	FieldSleepEnd  TimeConfirmationField = "sleep_end"
)

// LogCategory is the closed set of log_* intent categories (shared with
// internal/intent so the notification payload and the router agree on
// spelling).
type LogCategory string

const (
	LogFood       LogCategory = "log_food"
	LogVitals     LogCategory = "log_vitals"
	LogExercise   LogCategory = "log_exercise"
	LogHydration  LogCategory = "log_hydration"
	LogSupplement LogCategory = "log_supplement"
	LogFasting    LogCategory = "log_fasting"
	LogSleep      LogCategory = "log_sleep"
)

// TimeConfirmationPayload is the JSON shape stored in
// Notification.Payload for time confirmation notifications. Such rows are
// identified by Kind == NotificationKindTimeConfirmation in the payload; the
// row's Category is NotificationInfo.
type TimeConfirmationPayload struct {
	Kind         string                  `json:"kind"`
	Status       TimeConfirmationStatus  `json:"status"`
	Category     LogCategory             `json:"category"`
	RecordID     int64                   `json:"record_id"`
	Field        TimeConfirmationField   `json:"field"`
	InferredISO  string                  `json:"inferred_iso"`
	Reason       string                  `json:"reason"`
	Confidence   string                  `json:"confidence"`
}

// NotificationKindTimeConfirmation is the fixed Kind value for time
// confirmation notifications.
const NotificationKindTimeConfirmation = "time_confirmation"
