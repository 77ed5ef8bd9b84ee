// Package domain defines the persisted entities owned by the chat
// orchestration core: users, logs, templates, notifications, analysis runs
// and their proposals, and the adaptive-guidance frameworks that weight the
// context prompt. All timestamps are stored UTC; local-day bucketing uses
// UserSettings.Timezone.
package domain

import "time"

// Role distinguishes regular users from admins. Admin-only flows (usage
// dashboards, forced logouts) are out of scope for this core; the field is
// carried because User.TokenVersion invalidation depends on it.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the account record. Username is unique (a constraint on the
// users table). The store layer has no method that writes users, and
// nothing in this module folds the case of a username.
type User struct {
	ID                  int64
	Username            string
	DisplayName         string
	Role                Role
	TokenVersion        int64
	ForcePasswordChange bool
	CreatedAt           time.Time
}

// HeightUnit and WeightUnit constrain the unit-preference fields on
// UserSettings; HydrationUnit has the values ml, oz and cup.
type (
	HeightUnit    string
	WeightUnit    string
	HydrationUnit string
)

const (
	HeightUnitCM HeightUnit = "cm"
	HeightUnitIn HeightUnit = "in"

	WeightUnitKG WeightUnit = "kg"
	WeightUnitLB WeightUnit = "lb"

	HydrationUnitML  HydrationUnit = "ml"
	HydrationUnitOz  HydrationUnit = "oz"
	HydrationUnitCup HydrationUnit = "cup"
)

// StructuredItem is the canonical shape every medication/supplement entry is
// stored as. Generic placeholders ("my meds") never reach this shape; see
// internal/structured for the canonicalization rules.
type StructuredItem struct {
	Name   string `json:"name"`
	Dose   string `json:"dose,omitempty"`
	Timing string `json:"timing,omitempty"`
}

// UserSettings is the 1:1 settings/profile row for a User.
type UserSettings struct {
	UserID int64

	AIProviderID    string
	EncryptedAPIKey []byte
	ReasoningModel  string
	UtilityModel    string
	DeepThinkModel  string

	AgeYears   int
	Sex        string
	HeightCM   float64
	WeightKG   float64
	GoalWeight float64

	HeightUnit    HeightUnit
	WeightUnit    WeightUnit
	HydrationUnit HydrationUnit
	Timezone      string
	FitnessLevel  string

	MedicalConditions  []string
	DietaryPreferences []string
	HealthGoals        []string
	FamilyHistory      []string

	Medications []StructuredItem
	Supplements []StructuredItem

	UsageResetAt      *time.Time
	IntakeCompletedAt *time.Time
	IntakeSkippedAt   *time.Time

	UpdatedAt time.Time
}

// HasAPIKey reports whether the user has completed provider setup. The turn
// orchestrator's pre-flight step (turn pipeline step 1) aborts the turn with
// a ConfigMissing error when this is false.
func (s *UserSettings) HasAPIKey() bool {
	return s != nil && len(s.EncryptedAPIKey) > 0
}
