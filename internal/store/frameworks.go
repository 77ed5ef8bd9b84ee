package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

var nameNonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeName collapses a display name to its comparison key, mirroring
// internal/analysis's normalizeFrameworkName so both packages agree on the
// same unique-constraint key without one importing the other.
func normalizeName(name string) string {
	lower := nameNonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
	return strings.Join(strings.Fields(lower), " ")
}

const frameworkColumns = `id, user_id, framework_type, name, priority_score, is_active, source, rationale, created_at, updated_at`

func scanFramework(row interface{ Scan(...any) error }) (domain.HealthOptimizationFramework, error) {
	var f domain.HealthOptimizationFramework
	var ftype string
	var isActive int
	var createdAt, updatedAt int64
	err := row.Scan(&f.ID, &f.UserID, &ftype, &f.Name, &f.Priority, &isActive, &f.Source, &f.Rationale, &createdAt, &updatedAt)
	f.Type = domain.FrameworkType(ftype)
	f.IsActive = isActive != 0
	f.CreatedAt = time.Unix(createdAt, 0).UTC()
	f.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return f, err
}

// ActiveFrameworks returns a user's active frameworks ordered by descending
// priority, matching the context builder's allocation ordering.
func (db *DB) ActiveFrameworks(ctx context.Context, userID int64) ([]domain.HealthOptimizationFramework, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+frameworkColumns+` FROM health_optimization_frameworks WHERE user_id = ? AND is_active = 1 ORDER BY priority_score DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.HealthOptimizationFramework
	for rows.Next() {
		f, err := scanFramework(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFramework loads a single framework row scoped to userID.
func (db *DB) GetFramework(ctx context.Context, userID, frameworkID int64) (*domain.HealthOptimizationFramework, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+frameworkColumns+` FROM health_optimization_frameworks WHERE user_id = ? AND id = ?`, userID, frameworkID)
	f, err := scanFramework(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFrameworkByNormalizedName looks up a framework by its normalized name
// key, used before inserting a new one to detect a rename-worthy duplicate.
func (db *DB) GetFrameworkByNormalizedName(ctx context.Context, userID int64, normalizedName string) (*domain.HealthOptimizationFramework, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+frameworkColumns+` FROM health_optimization_frameworks WHERE user_id = ? AND normalized_name = ?`, userID, normalizedName)
	f, err := scanFramework(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertFramework inserts a framework, or updates it in place if one with
// the same (user_id, normalized_name) already exists.
func (db *DB) UpsertFramework(ctx context.Context, f *domain.HealthOptimizationFramework) (*domain.HealthOptimizationFramework, error) {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	normalized := normalizeName(f.Name)

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO health_optimization_frameworks (user_id, framework_type, name, normalized_name, priority_score, is_active, source, rationale, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, normalized_name) DO UPDATE SET
			framework_type = excluded.framework_type,
			name = excluded.name,
			priority_score = excluded.priority_score,
			is_active = excluded.is_active,
			source = excluded.source,
			rationale = excluded.rationale,
			updated_at = excluded.updated_at`,
		f.UserID, string(f.Type), f.Name, normalized, f.Priority, boolToInt(f.IsActive), f.Source, f.Rationale, f.CreatedAt.Unix(), now.Unix())
	if err != nil {
		return nil, err
	}
	return db.GetFrameworkByNormalizedName(ctx, f.UserID, normalized)
}

// UpdateFramework writes every mutable column of an existing framework row.
func (db *DB) UpdateFramework(ctx context.Context, f *domain.HealthOptimizationFramework) error {
	now := time.Now().UTC()
	f.UpdatedAt = now
	_, err := db.conn.ExecContext(ctx, `
		UPDATE health_optimization_frameworks SET
			framework_type = ?, name = ?, normalized_name = ?, priority_score = ?, is_active = ?, source = ?, rationale = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(f.Type), f.Name, normalizeName(f.Name), f.Priority, boolToInt(f.IsActive), f.Source, f.Rationale, now.Unix(), f.ID, f.UserID)
	return err
}

// DeleteFramework removes a framework row scoped to userID.
func (db *DB) DeleteFramework(ctx context.Context, userID, frameworkID int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM health_optimization_frameworks WHERE id = ? AND user_id = ?`, frameworkID, userID)
	return err
}
