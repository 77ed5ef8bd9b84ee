package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// UpdateLogEventTime rewrites the single timestamp column a time
// confirmation correction targets (the time-confirmation/notification flow: a correction message
// re-infers the event UTC and rewrites the prior row's event field in
// place, rather than inserting a second row).
func (db *DB) UpdateLogEventTime(ctx context.Context, category domain.LogCategory, field domain.TimeConfirmationField, recordID int64, newUTC time.Time) error {
	var query string
	switch field {
	case domain.FieldLoggedAt:
		switch category {
		case domain.LogFood:
			query = `UPDATE food_logs SET logged_at = ? WHERE id = ?`
		case domain.LogVitals:
			query = `UPDATE vitals_logs SET logged_at = ? WHERE id = ?`
		case domain.LogExercise:
			query = `UPDATE exercise_logs SET logged_at = ? WHERE id = ?`
		case domain.LogHydration:
			query = `UPDATE hydration_logs SET logged_at = ? WHERE id = ?`
		case domain.LogSupplement:
			query = `UPDATE supplement_logs SET logged_at = ? WHERE id = ?`
		default:
			return fmt.Errorf("store: logged_at correction not supported for category %q", category)
		}
	case domain.FieldFastStart:
		query = `UPDATE fasting_logs SET fast_start = ? WHERE id = ?`
	case domain.FieldFastEnd:
		query = `UPDATE fasting_logs SET fast_end = ? WHERE id = ?`
	case domain.FieldSleepStart:
		query = `UPDATE sleep_logs SET sleep_start = ? WHERE id = ?`
	case domain.FieldSleepEnd:
		query = `UPDATE sleep_logs SET sleep_end = ? WHERE id = ?`
	default:
		return fmt.Errorf("store: unknown time confirmation field %q", field)
	}
	_, err := db.conn.ExecContext(ctx, query, newUTC.UTC().Unix(), recordID)
	return err
}
