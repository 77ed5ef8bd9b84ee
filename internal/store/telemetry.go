package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func rawOrNil(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}

// InsertRequestTelemetry persists one generic performance event.
func (db *DB) InsertRequestTelemetry(ctx context.Context, e *domain.RequestTelemetryEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO request_telemetry_events (user_id, name, duration_ms, first_byte_ms, failure_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Name, e.DurationMS, e.FirstByteMS, rawOrNil(e.FailureJSON), e.CreatedAt.Unix())
	return err
}

// InsertTurnTelemetry persists one chat turn's token-usage and timing
// rollup, written at the end of the orchestrator's pipeline.
func (db *DB) InsertTurnTelemetry(ctx context.Context, t *domain.AITurnTelemetry) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO ai_turn_telemetry (user_id, message_id, category, specialist,
			utility_calls, reasoning_calls, deep_calls,
			utility_tokens_in, utility_tokens_out,
			reasoning_tokens_in, reasoning_tokens_out,
			deep_tokens_in, deep_tokens_out,
			first_token_ms, total_ms, failure_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.MessageID, t.Category, t.Specialist,
		t.UtilityCalls, t.ReasoningCalls, t.DeepCalls,
		t.UtilityTokensIn, t.UtilityTokensOut,
		t.ReasoningTokensIn, t.ReasoningTokensOut,
		t.DeepTokensIn, t.DeepTokensOut,
		t.FirstTokenMS, t.TotalMS, rawOrNil(t.FailureJSON), t.CreatedAt.Unix())
	return err
}

// InsertFeedbackEntry persists one auto-extracted bug/enhancement report.
func (db *DB) InsertFeedbackEntry(ctx context.Context, f *domain.FeedbackEntry) (int64, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO feedback_entries (user_id, specialist, kind, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.UserID, f.Specialist, f.Kind, f.Title, f.Description, f.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	f.ID = id
	return id, err
}

// RecentFeedbackEntries returns a user's feedback entries created within the
// lookback window, newest first, used by the dedupe-by-title-similarity
// check before inserting a new one.
func (db *DB) RecentFeedbackEntries(ctx context.Context, userID int64, since time.Time) ([]domain.FeedbackEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, specialist, kind, title, description, created_at
		FROM feedback_entries WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC`,
		userID, since.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeedbackEntry
	for rows.Next() {
		var f domain.FeedbackEntry
		var createdAt int64
		if err := rows.Scan(&f.ID, &f.UserID, &f.Specialist, &f.Kind, &f.Title, &f.Description, &createdAt); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}
