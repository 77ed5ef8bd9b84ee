package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// FindMealTemplate looks up a user's meal template by its normalized name
// (lowercased, whitespace-collapsed, matching the normalization the
// food-log write tool applies before calling this), returning nil if none
// matches.
func (db *DB) FindMealTemplate(ctx context.Context, userID int64, normalizedName string) (*domain.MealTemplate, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, name, aliases, ingredients, base_servings, calories_kcal, protein_g, carbs_g, fat_g, is_archived, created_at, updated_at
		FROM meal_templates WHERE user_id = ? AND normalized_name = ? AND is_archived = 0`,
		userID, normalizedName)

	var t domain.MealTemplate
	var aliases, ingredients string
	var isArchived int
	var createdAt, updatedAt int64
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &aliases, &ingredients, &t.BaseServings, &t.CaloriesKcal, &t.ProteinG, &t.CarbsG, &t.FatG, &isArchived, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Aliases = decodeStrings(aliases)
	t.Ingredients = decodeFoodItems(ingredients)
	t.IsArchived = isArchived != 0
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

// UpsertMealTemplate inserts a new template or updates an existing one
// matched by normalizedName, snapshotting the pre-update state into
// meal_template_versions whenever an existing row is changed (the tool catalogue
// meal_template_upsert "versions it").
func (db *DB) UpsertMealTemplate(ctx context.Context, t *domain.MealTemplate, normalizedName string) error {
	now := time.Now().UTC()
	existing, err := db.FindMealTemplate(ctx, t.UserID, normalizedName)
	if err != nil {
		return err
	}
	if existing == nil {
		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO meal_templates (user_id, name, normalized_name, aliases, ingredients, base_servings, calories_kcal, protein_g, carbs_g, fat_g, is_archived, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			t.UserID, t.Name, normalizedName, encodeStrings(t.Aliases), encodeFoodItems(t.Ingredients),
			t.BaseServings, t.CaloriesKcal, t.ProteinG, t.CarbsG, t.FatG, now.Unix(), now.Unix())
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		t.ID = id
		t.CreatedAt = now
		t.UpdatedAt = now
		return err
	}

	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO meal_template_versions (meal_template_id, name, ingredients, base_servings, calories_kcal, protein_g, carbs_g, fat_g, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		existing.ID, existing.Name, encodeFoodItems(existing.Ingredients), existing.BaseServings,
		existing.CaloriesKcal, existing.ProteinG, existing.CarbsG, existing.FatG, now.Unix()); err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE meal_templates SET name = ?, aliases = ?, ingredients = ?, base_servings = ?, calories_kcal = ?, protein_g = ?, carbs_g = ?, fat_g = ?, is_archived = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, encodeStrings(t.Aliases), encodeFoodItems(t.Ingredients), t.BaseServings,
		t.CaloriesKcal, t.ProteinG, t.CarbsG, t.FatG, boolToInt(t.IsArchived), now.Unix(), existing.ID)
	if err != nil {
		return err
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = now
	return nil
}

// InsertMealResponseSignal persists a reported post-meal signal
// (meal_response_signal_write).
func (db *DB) InsertMealResponseSignal(ctx context.Context, s *domain.MealResponseSignal) (int64, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO meal_response_signals (user_id, meal_template_id, food_log_id, signal, severity, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, nullableInt64(s.MealTemplateID), nullableInt64(s.FoodLogID), s.Signal, s.Severity, s.Notes, s.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	s.ID = id
	return id, err
}

// MealResponseSignalsForTemplate returns every signal reported against a
// template, newest first (meal_response_insights read tool).
func (db *DB) MealResponseSignalsForTemplate(ctx context.Context, mealTemplateID int64) ([]domain.MealResponseSignal, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, meal_template_id, food_log_id, signal, severity, notes, created_at
		FROM meal_response_signals WHERE meal_template_id = ? ORDER BY created_at DESC`, mealTemplateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MealResponseSignal
	for rows.Next() {
		var s domain.MealResponseSignal
		var mealTemplateID, foodLogID sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.UserID, &mealTemplateID, &foodLogID, &s.Signal, &s.Severity, &s.Notes, &createdAt); err != nil {
			return nil, err
		}
		if mealTemplateID.Valid {
			v := mealTemplateID.Int64
			s.MealTemplateID = &v
		}
		if foodLogID.Valid {
			v := foodLogID.Int64
			s.FoodLogID = &v
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// MealTemplateVersions returns a template's version history, newest first
// (meal_template_versions read tool, the tool catalogue).
func (db *DB) MealTemplateVersions(ctx context.Context, mealTemplateID int64) ([]domain.MealTemplateVersion, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, meal_template_id, name, ingredients, base_servings, calories_kcal, protein_g, carbs_g, fat_g, created_at
		FROM meal_template_versions WHERE meal_template_id = ? ORDER BY created_at DESC`, mealTemplateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MealTemplateVersion
	for rows.Next() {
		var v domain.MealTemplateVersion
		var ingredients string
		var createdAt int64
		if err := rows.Scan(&v.ID, &v.MealTemplateID, &v.Name, &ingredients, &v.BaseServings, &v.CaloriesKcal, &v.ProteinG, &v.CarbsG, &v.FatG, &createdAt); err != nil {
			return nil, err
		}
		v.Ingredients = decodeFoodItems(ingredients)
		v.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}
