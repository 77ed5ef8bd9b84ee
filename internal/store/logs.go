package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func encodeFoodItems(v []domain.FoodItem) string {
	if v == nil {
		v = []domain.FoodItem{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeFoodItems(s string) []domain.FoodItem {
	var out []domain.FoodItem
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// InsertFoodLog persists row and returns its assigned id.
func (db *DB) InsertFoodLog(ctx context.Context, row *domain.FoodLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO food_logs (user_id, logged_at, meal_label, items, calories_kcal, protein_g, carbs_g, fat_g, fiber_g, sodium_mg, servings, meal_template_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.UserID, row.LoggedAt.UTC().Unix(), row.MealLabel, encodeFoodItems(row.Items),
		row.CaloriesKcal, row.ProteinG, row.CarbsG, row.FatG, row.FiberG, row.SodiumMg, row.Servings,
		row.MealTemplateID, row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

// FoodLogsBetween returns every food log in [start, end], inclusive,
// ordered by logged_at.
func (db *DB) FoodLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.FoodLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, logged_at, meal_label, items, calories_kcal, protein_g, carbs_g, fat_g, fiber_g, sodium_mg, servings, meal_template_id, notes, created_at
		FROM food_logs WHERE user_id = ? AND logged_at >= ? AND logged_at <= ? ORDER BY logged_at`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FoodLog
	for rows.Next() {
		var r domain.FoodLog
		var items string
		var loggedAt, createdAt int64
		var mealTemplateID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.UserID, &loggedAt, &r.MealLabel, &items, &r.CaloriesKcal, &r.ProteinG, &r.CarbsG, &r.FatG, &r.FiberG, &r.SodiumMg, &r.Servings, &mealTemplateID, &r.Notes, &createdAt); err != nil {
			return nil, err
		}
		r.Items = decodeFoodItems(items)
		r.LoggedAt = time.Unix(loggedAt, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		if mealTemplateID.Valid {
			id := mealTemplateID.Int64
			r.MealTemplateID = &id
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestFoodLog returns the user's most recently logged meal, or nil if
// they have none yet (used by the menu-template command detection step to
// find the meal a "save this as my usual breakfast" message refers to).
func (db *DB) LatestFoodLog(ctx context.Context, userID int64) (*domain.FoodLog, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, logged_at, meal_label, items, calories_kcal, protein_g, carbs_g, fat_g, fiber_g, sodium_mg, servings, meal_template_id, notes, created_at
		FROM food_logs WHERE user_id = ? ORDER BY logged_at DESC LIMIT 1`, userID)

	var r domain.FoodLog
	var items string
	var loggedAt, createdAt int64
	var mealTemplateID sql.NullInt64
	err := row.Scan(&r.ID, &r.UserID, &loggedAt, &r.MealLabel, &items, &r.CaloriesKcal, &r.ProteinG, &r.CarbsG, &r.FatG, &r.FiberG, &r.SodiumMg, &r.Servings, &mealTemplateID, &r.Notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Items = decodeFoodItems(items)
	r.LoggedAt = time.Unix(loggedAt, 0).UTC()
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	if mealTemplateID.Valid {
		id := mealTemplateID.Int64
		r.MealTemplateID = &id
	}
	return &r, nil
}

// InsertHydrationLog persists row and returns its assigned id.
func (db *DB) InsertHydrationLog(ctx context.Context, row *domain.HydrationLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO hydration_logs (user_id, logged_at, volume_ml, source_unit, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.UserID, row.LoggedAt.UTC().Unix(), row.VolumeML, string(row.SourceUnit), row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

// HydrationLogsBetween returns every hydration log in [start, end].
func (db *DB) HydrationLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.HydrationLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, logged_at, volume_ml, source_unit, notes, created_at
		FROM hydration_logs WHERE user_id = ? AND logged_at >= ? AND logged_at <= ? ORDER BY logged_at`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HydrationLog
	for rows.Next() {
		var r domain.HydrationLog
		var sourceUnit string
		var loggedAt, createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &loggedAt, &r.VolumeML, &sourceUnit, &r.Notes, &createdAt); err != nil {
			return nil, err
		}
		r.SourceUnit = domain.HydrationUnit(sourceUnit)
		r.LoggedAt = time.Unix(loggedAt, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertVitalsLog persists row and returns its assigned id.
func (db *DB) InsertVitalsLog(ctx context.Context, row *domain.VitalsLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO vitals_logs (user_id, logged_at, bp_systolic, bp_diastolic, heart_rate, weight_kg, blood_glucose, temperature_c, spo2, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.UserID, row.LoggedAt.UTC().Unix(), row.BPSystolic, row.BPDiastolic, row.HeartRate, row.WeightKG, row.BloodGlucose, row.TemperatureC, row.SPO2, row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

func scanVitals(rows *sql.Rows) (domain.VitalsLog, error) {
	var r domain.VitalsLog
	var loggedAt, createdAt int64
	err := rows.Scan(&r.ID, &r.UserID, &loggedAt, &r.BPSystolic, &r.BPDiastolic, &r.HeartRate, &r.WeightKG, &r.BloodGlucose, &r.TemperatureC, &r.SPO2, &r.Notes, &createdAt)
	r.LoggedAt = time.Unix(loggedAt, 0).UTC()
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, err
}

const vitalsColumns = `id, user_id, logged_at, bp_systolic, bp_diastolic, heart_rate, weight_kg, blood_glucose, temperature_c, spo2, notes, created_at`

// VitalsLogsBetween returns every vitals log in [start, end].
func (db *DB) VitalsLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.VitalsLog, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+vitalsColumns+` FROM vitals_logs WHERE user_id = ? AND logged_at >= ? AND logged_at <= ? ORDER BY logged_at`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.VitalsLog
	for rows.Next() {
		r, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestVitalsBetween returns the most recent vitals log in [start, end],
// or nil if there isn't one.
func (db *DB) LatestVitalsBetween(ctx context.Context, userID int64, start, end time.Time) (*domain.VitalsLog, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+vitalsColumns+` FROM vitals_logs WHERE user_id = ? AND logged_at >= ? AND logged_at <= ? ORDER BY logged_at DESC LIMIT 1`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	var r domain.VitalsLog
	var loggedAt, createdAt int64
	err := row.Scan(&r.ID, &r.UserID, &loggedAt, &r.BPSystolic, &r.BPDiastolic, &r.HeartRate, &r.WeightKG, &r.BloodGlucose, &r.TemperatureC, &r.SPO2, &r.Notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.LoggedAt = time.Unix(loggedAt, 0).UTC()
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &r, nil
}

// InsertExerciseLog persists row and returns its assigned id.
func (db *DB) InsertExerciseLog(ctx context.Context, row *domain.ExerciseLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO exercise_logs (user_id, logged_at, exercise_type, duration_minutes, intensity, calories_kcal, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.UserID, row.LoggedAt.UTC().Unix(), row.ExerciseType, row.DurationMinutes, row.Intensity, row.CaloriesKcal, row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

// ExerciseLogsBetween returns every exercise log in [start, end].
func (db *DB) ExerciseLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.ExerciseLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, logged_at, exercise_type, duration_minutes, intensity, calories_kcal, notes, created_at
		FROM exercise_logs WHERE user_id = ? AND logged_at >= ? AND logged_at <= ? ORDER BY logged_at`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ExerciseLog
	for rows.Next() {
		var r domain.ExerciseLog
		var loggedAt, createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &loggedAt, &r.ExerciseType, &r.DurationMinutes, &r.Intensity, &r.CaloriesKcal, &r.Notes, &createdAt); err != nil {
			return nil, err
		}
		r.LoggedAt = time.Unix(loggedAt, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertSupplementLog persists row and returns its assigned id.
func (db *DB) InsertSupplementLog(ctx context.Context, row *domain.SupplementLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO supplement_logs (user_id, logged_at, item_type, item_name, dose, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.UserID, row.LoggedAt.UTC().Unix(), string(row.ItemType), row.ItemName, row.Dose, row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

// SupplementLogsBetween returns every medication/supplement intake log in
// [start, end].
func (db *DB) SupplementLogsBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.SupplementLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, logged_at, item_type, item_name, dose, notes, created_at
		FROM supplement_logs WHERE user_id = ? AND logged_at >= ? AND logged_at <= ? ORDER BY logged_at`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SupplementLog
	for rows.Next() {
		var r domain.SupplementLog
		var itemType string
		var loggedAt, createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &loggedAt, &itemType, &r.ItemName, &r.Dose, &r.Notes, &createdAt); err != nil {
			return nil, err
		}
		r.ItemType = domain.ChecklistItemType(itemType)
		r.LoggedAt = time.Unix(loggedAt, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// StartFasting opens a new fast for the user.
func (db *DB) StartFasting(ctx context.Context, row *domain.FastingLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO fasting_logs (user_id, fast_start, fast_end, duration_minutes, notes, created_at)
		VALUES (?, ?, NULL, 0, ?, ?)`,
		row.UserID, row.FastStart.UTC().Unix(), row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

func scanFasting(row interface{ Scan(...any) error }) (*domain.FastingLog, error) {
	var r domain.FastingLog
	var fastStart int64
	var fastEnd sql.NullInt64
	var createdAt int64
	if err := row.Scan(&r.ID, &r.UserID, &fastStart, &fastEnd, &r.DurationMinutes, &r.Notes, &createdAt); err != nil {
		return nil, err
	}
	r.FastStart = time.Unix(fastStart, 0).UTC()
	r.FastEnd = timePtrFromUnix(fastEnd)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &r, nil
}

const fastingColumns = `id, user_id, fast_start, fast_end, duration_minutes, notes, created_at`

// OpenFasting returns the user's currently open fast, if any, forcibly
// closing it first if it has exceeded domain.FastingAutoCloseAfter,
// matching the ownership invariant that no fast may remain open forever.
func (db *DB) OpenFasting(ctx context.Context, userID int64) (*domain.FastingLog, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+fastingColumns+` FROM fasting_logs WHERE user_id = ? AND fast_end IS NULL ORDER BY fast_start DESC LIMIT 1`, userID)
	r, err := scanFasting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Since(r.FastStart) > domain.FastingAutoCloseAfter {
		return db.EndFasting(ctx, r.ID, r.FastStart.Add(domain.FastingAutoCloseAfter))
	}
	return r, nil
}

// EndFasting closes an open fast and computes its duration.
func (db *DB) EndFasting(ctx context.Context, fastingLogID int64, end time.Time) (*domain.FastingLog, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+fastingColumns+` FROM fasting_logs WHERE id = ?`, fastingLogID)
	r, err := scanFasting(row)
	if err != nil {
		return nil, err
	}
	duration := int(end.UTC().Sub(r.FastStart).Minutes())
	if _, err := db.conn.ExecContext(ctx, `UPDATE fasting_logs SET fast_end = ?, duration_minutes = ? WHERE id = ?`,
		end.UTC().Unix(), duration, fastingLogID); err != nil {
		return nil, err
	}
	endCopy := end.UTC()
	r.FastEnd = &endCopy
	r.DurationMinutes = duration
	return r, nil
}

// FastingLogsStartingBetween returns every fast whose start falls in
// [start, end].
func (db *DB) FastingLogsStartingBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.FastingLog, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+fastingColumns+` FROM fasting_logs WHERE user_id = ? AND fast_start >= ? AND fast_start <= ? ORDER BY fast_start`,
		userID, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.FastingLog
	for rows.Next() {
		r, err := scanFasting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// InsertSleepLog persists row and returns its assigned id.
func (db *DB) InsertSleepLog(ctx context.Context, row *domain.SleepLog) (int64, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sleep_logs (user_id, sleep_start, sleep_end, duration_minutes, quality, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.UserID, row.SleepStart.UTC().Unix(), row.SleepEnd.UTC().Unix(), row.DurationMinutes, row.Quality, row.Notes, now.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	row.ID = id
	return id, err
}

const sleepColumns = `id, user_id, sleep_start, sleep_end, duration_minutes, quality, notes, created_at`

func scanSleep(row interface{ Scan(...any) error }) (domain.SleepLog, error) {
	var r domain.SleepLog
	var sleepStart, sleepEnd, createdAt int64
	err := row.Scan(&r.ID, &r.UserID, &sleepStart, &sleepEnd, &r.DurationMinutes, &r.Quality, &r.Notes, &createdAt)
	r.SleepStart = time.Unix(sleepStart, 0).UTC()
	r.SleepEnd = time.Unix(sleepEnd, 0).UTC()
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, err
}

// SleepLogsOverlapping returns every sleep log whose interval overlaps
// [start, end].
func (db *DB) SleepLogsOverlapping(ctx context.Context, userID int64, start, end time.Time) ([]domain.SleepLog, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+sleepColumns+` FROM sleep_logs WHERE user_id = ? AND sleep_start <= ? AND sleep_end >= ? ORDER BY sleep_start`,
		userID, end.UTC().Unix(), start.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SleepLog
	for rows.Next() {
		r, err := scanSleep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSleepOverlapping returns the most recent sleep log overlapping
// [start, end], or nil.
func (db *DB) LatestSleepOverlapping(ctx context.Context, userID int64, start, end time.Time) (*domain.SleepLog, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+sleepColumns+` FROM sleep_logs WHERE user_id = ? AND sleep_start <= ? AND sleep_end >= ? ORDER BY sleep_end DESC LIMIT 1`,
		userID, end.UTC().Unix(), start.UTC().Unix())
	r, err := scanSleep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
