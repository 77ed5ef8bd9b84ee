package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// InsertNotification persists a new notification row, unread by default.
func (db *DB) InsertNotification(ctx context.Context, n *domain.Notification) (int64, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notifications (user_id, category, title, message, payload, is_read, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, string(n.Category), n.Title, n.Message, rawOrEmptyObject(n.Payload), boolToInt(n.IsRead), unixOrNil(n.ReadAt), n.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	n.ID = id
	return id, err
}

const notificationColumns = `id, user_id, category, title, message, payload, is_read, read_at, created_at`

func scanNotification(row interface{ Scan(...any) error }) (domain.Notification, error) {
	var n domain.Notification
	var category string
	var payload string
	var isRead int
	var readAt sql.NullInt64
	var createdAt int64
	err := row.Scan(&n.ID, &n.UserID, &category, &n.Title, &n.Message, &payload, &isRead, &readAt, &createdAt)
	if err != nil {
		return n, err
	}
	n.Category = domain.NotificationCategory(category)
	n.Payload = json.RawMessage(payload)
	n.IsRead = isRead != 0
	n.ReadAt = timePtrFromUnix(readAt)
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	return n, nil
}

// GetNotification loads a single notification row scoped to userID.
func (db *DB) GetNotification(ctx context.Context, userID, notificationID int64) (*domain.Notification, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? AND id = ?`, userID, notificationID)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// PendingTimeConfirmation returns the user's oldest unread time-confirmation
// notification for the given record, or nil, matching the invariant that at
// most one confirmation prompt per record is ever outstanding.
func (db *DB) PendingTimeConfirmation(ctx context.Context, userID int64, category domain.LogCategory, recordID int64) (*domain.Notification, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND category = ? AND is_read = 0
		ORDER BY created_at`, userID, string(domain.NotificationInfo))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		var payload domain.TimeConfirmationPayload
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			continue
		}
		if payload.Kind == domain.NotificationKindTimeConfirmation && payload.Category == category && payload.RecordID == recordID {
			return &n, nil
		}
	}
	return nil, rows.Err()
}

// UnreadNotifications returns a user's unread notifications, oldest first.
func (db *DB) UnreadNotifications(ctx context.Context, userID int64) ([]domain.Notification, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? AND is_read = 0 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead sets is_read and persists any updated payload (the
// time-confirmation flow rewrites Payload.Status before marking read).
func (db *DB) MarkNotificationRead(ctx context.Context, n *domain.Notification) error {
	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
	_, err := db.conn.ExecContext(ctx, `UPDATE notifications SET is_read = 1, read_at = ?, payload = ? WHERE id = ?`,
		now.Unix(), rawOrEmptyObject(n.Payload), n.ID)
	return err
}
