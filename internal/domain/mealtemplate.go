package domain

import "time"

// MealTemplate is a named, reusable meal. Aliases lets the food-log writer
// match loose phrasing ("my usual breakfast") back to a canonical template.
type MealTemplate struct {
	ID             int64
	UserID         int64
	Name           string
	Aliases        []string
	Ingredients    []FoodItem
	BaseServings   float64
	CaloriesKcal   float64
	ProteinG       float64
	CarbsG         float64
	FatG           float64
	IsArchived     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MealTemplateVersion snapshots a MealTemplate at the moment an edit was
// accepted, so meal_template_versions (C4 read tool) can show edit history.
type MealTemplateVersion struct {
	ID             int64
	MealTemplateID int64
	Name           string
	Ingredients    []FoodItem
	BaseServings   float64
	CaloriesKcal   float64
	ProteinG       float64
	CarbsG         float64
	FatG           float64
	CreatedAt      time.Time
}

// MealResponseSignal links a template or a single food log to a reported
// post-meal energy/GI signal (meal_response_insights read tool).
type MealResponseSignal struct {
	ID             int64
	UserID         int64
	MealTemplateID *int64
	FoodLogID      *int64
	Signal         string
	Severity       int
	Notes          string
	CreatedAt      time.Time
}

// DailyChecklistItem is the per-(user, local-day) expected medication or
// supplement intake record. The unique key is
// (UserID, TargetDate, ItemType, ItemName); repeated completions are a
// no-op, i.e. marking an already-taken item taken again changes nothing.
type DailyChecklistItem struct {
	ID         int64
	UserID     int64
	TargetDate string // YYYY-MM-DD, local to UserSettings.Timezone
	ItemType   ChecklistItemType
	ItemName   string
	Completed  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
