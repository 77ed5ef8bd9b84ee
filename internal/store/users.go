package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/contextbuilder"
	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// GetUser loads a user by id.
func (db *DB) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, username, display_name, role, token_version, force_password_change, created_at
		FROM users WHERE id = ?`, userID)

	var u domain.User
	var role string
	var forcePW int
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &role, &u.TokenVersion, &forcePW, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: user %d not found", userID)
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.ForcePasswordChange = forcePW != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// ListActiveUserIDs returns every user id, used by the analysis
// dispatcher's background sweep. "Active" has no separate deactivation
// flag in this core; every user row is a candidate.
func (db *DB) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) []string {
	var out []string
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeItems(v []domain.StructuredItem) string {
	if v == nil {
		v = []domain.StructuredItem{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeItems(s string) []domain.StructuredItem {
	var out []domain.StructuredItem
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// GetSettings loads a user's settings row, returning a default
// UserSettings (not an error) when none exists yet, matching a
// not-yet-onboarded user: UserID and Timezone "UTC" are set and every
// other field is zero.
func (db *DB) GetSettings(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT ai_provider_id, encrypted_api_key, reasoning_model, utility_model, deep_think_model,
			age_years, sex, height_cm, weight_kg, goal_weight,
			height_unit, weight_unit, hydration_unit, timezone, fitness_level,
			medical_conditions, dietary_preferences, health_goals, family_history,
			medications, supplements,
			usage_reset_at, intake_completed_at, intake_skipped_at, updated_at
		FROM user_settings WHERE user_id = ?`, userID)

	var s domain.UserSettings
	s.UserID = userID
	var heightUnit, weightUnit, hydrationUnit string
	var medicalConditions, dietaryPreferences, healthGoals, familyHistory string
	var medications, supplements string
	var usageResetAt, intakeCompletedAt, intakeSkippedAt sql.NullInt64
	var updatedAt int64

	err := row.Scan(&s.AIProviderID, &s.EncryptedAPIKey, &s.ReasoningModel, &s.UtilityModel, &s.DeepThinkModel,
		&s.AgeYears, &s.Sex, &s.HeightCM, &s.WeightKG, &s.GoalWeight,
		&heightUnit, &weightUnit, &hydrationUnit, &s.Timezone, &s.FitnessLevel,
		&medicalConditions, &dietaryPreferences, &healthGoals, &familyHistory,
		&medications, &supplements,
		&usageResetAt, &intakeCompletedAt, &intakeSkippedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.UserSettings{UserID: userID, Timezone: "UTC"}, nil
	}
	if err != nil {
		return nil, err
	}

	s.HeightUnit = domain.HeightUnit(heightUnit)
	s.WeightUnit = domain.WeightUnit(weightUnit)
	s.HydrationUnit = domain.HydrationUnit(hydrationUnit)
	s.MedicalConditions = decodeStrings(medicalConditions)
	s.DietaryPreferences = decodeStrings(dietaryPreferences)
	s.HealthGoals = decodeStrings(healthGoals)
	s.FamilyHistory = decodeStrings(familyHistory)
	s.Medications = decodeItems(medications)
	s.Supplements = decodeItems(supplements)
	s.UsageResetAt = timePtrFromUnix(usageResetAt)
	s.IntakeCompletedAt = timePtrFromUnix(intakeCompletedAt)
	s.IntakeSkippedAt = timePtrFromUnix(intakeSkippedAt)
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

// SaveSettings upserts a user's full settings row.
func (db *DB) SaveSettings(ctx context.Context, s *domain.UserSettings) error {
	now := time.Now().UTC()
	s.UpdatedAt = now
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_settings (
			user_id, ai_provider_id, encrypted_api_key, reasoning_model, utility_model, deep_think_model,
			age_years, sex, height_cm, weight_kg, goal_weight,
			height_unit, weight_unit, hydration_unit, timezone, fitness_level,
			medical_conditions, dietary_preferences, health_goals, family_history,
			medications, supplements,
			usage_reset_at, intake_completed_at, intake_skipped_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			ai_provider_id = excluded.ai_provider_id,
			encrypted_api_key = excluded.encrypted_api_key,
			reasoning_model = excluded.reasoning_model,
			utility_model = excluded.utility_model,
			deep_think_model = excluded.deep_think_model,
			age_years = excluded.age_years,
			sex = excluded.sex,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			goal_weight = excluded.goal_weight,
			height_unit = excluded.height_unit,
			weight_unit = excluded.weight_unit,
			hydration_unit = excluded.hydration_unit,
			timezone = excluded.timezone,
			fitness_level = excluded.fitness_level,
			medical_conditions = excluded.medical_conditions,
			dietary_preferences = excluded.dietary_preferences,
			health_goals = excluded.health_goals,
			family_history = excluded.family_history,
			medications = excluded.medications,
			supplements = excluded.supplements,
			usage_reset_at = excluded.usage_reset_at,
			intake_completed_at = excluded.intake_completed_at,
			intake_skipped_at = excluded.intake_skipped_at,
			updated_at = excluded.updated_at`,
		s.UserID, s.AIProviderID, s.EncryptedAPIKey, s.ReasoningModel, s.UtilityModel, s.DeepThinkModel,
		s.AgeYears, s.Sex, s.HeightCM, s.WeightKG, s.GoalWeight,
		string(s.HeightUnit), string(s.WeightUnit), string(s.HydrationUnit), s.Timezone, s.FitnessLevel,
		encodeStrings(s.MedicalConditions), encodeStrings(s.DietaryPreferences), encodeStrings(s.HealthGoals), encodeStrings(s.FamilyHistory),
		encodeItems(s.Medications), encodeItems(s.Supplements),
		unixOrNil(s.UsageResetAt), unixOrNil(s.IntakeCompletedAt), unixOrNil(s.IntakeSkippedAt), now.Unix(),
	)
	return err
}

// GetSpecialistOverrides loads the per-user prompt override row, returning
// a zero value (no overrides) rather than an error when the settings row
// doesn't exist or the columns are empty.
func (db *DB) GetSpecialistOverrides(ctx context.Context, userID int64) (*contextbuilder.SpecialistOverrides, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT system_prompt_override, specialist_prompts, updated_at
		FROM user_settings WHERE user_id = ?`, userID)

	var systemOverride, specialistPrompts string
	var updatedAt int64
	err := row.Scan(&systemOverride, &specialistPrompts, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &contextbuilder.SpecialistOverrides{}, nil
	}
	if err != nil {
		return nil, err
	}

	var prompts map[string]string
	if specialistPrompts != "" {
		_ = json.Unmarshal([]byte(specialistPrompts), &prompts)
	}
	return &contextbuilder.SpecialistOverrides{
		SystemPromptOverride: systemOverride,
		SpecialistPrompts:    prompts,
		UpdatedAt:            time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// SaveSpecialistOverrides updates only the prompt-override columns of an
// existing settings row; callers must have already created one via
// SaveSettings.
func (db *DB) SaveSpecialistOverrides(ctx context.Context, userID int64, o contextbuilder.SpecialistOverrides) error {
	prompts, err := json.Marshal(o.SpecialistPrompts)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		UPDATE user_settings SET system_prompt_override = ?, specialist_prompts = ?, updated_at = ?
		WHERE user_id = ?`, o.SystemPromptOverride, string(prompts), time.Now().UTC().Unix(), userID)
	return err
}
