package store

import (
	"context"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// InsertMessage persists one turn of conversation history.
func (db *DB) InsertMessage(ctx context.Context, m *domain.Message) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO messages (user_id, role, content, image_ref, specialist, model_used, tokens_in, tokens_out, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, string(m.Role), m.Content, m.ImageRef, m.Specialist, m.ModelUsed, m.TokensIn, m.TokensOut, m.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	m.ID = id
	return id, err
}

// RecentMessages returns the last limit messages for userID, oldest first,
// used to seed a turn's rolling conversation window.
func (db *DB) RecentMessages(ctx context.Context, userID int64, limit int) ([]domain.Message, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, role, content, image_ref, specialist, model_used, tokens_in, tokens_out, created_at
		FROM messages WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		r, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// UserMessagesBetween returns up to limit of the user's own chat messages
// in [start, end], oldest first, used by the longitudinal analysis engine's
// qualitative-signal extraction pass.
func (db *DB) UserMessagesBetween(ctx context.Context, userID int64, start, end time.Time, limit int) ([]domain.Message, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, role, content, image_ref, specialist, model_used, tokens_in, tokens_out, created_at
		FROM messages WHERE user_id = ? AND role = 'user' AND created_at >= ? AND created_at <= ?
		ORDER BY created_at LIMIT ?`,
		userID, start.UTC().Unix(), end.UTC().Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		r, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanMessage(rows interface{ Scan(...any) error }) (domain.Message, error) {
	var r domain.Message
	var role string
	var createdAt int64
	err := rows.Scan(&r.ID, &r.UserID, &role, &r.Content, &r.ImageRef, &r.Specialist, &r.ModelUsed, &r.TokensIn, &r.TokensOut, &createdAt)
	r.Role = domain.MessageRole(role)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, err
}
