package domain

import "time"

// FoodLog records one meal or snack. Items is the canonical JSON list of
// parsed food items; MealTemplateID is set when the write resolved against
// an existing MealTemplate (food_log_write auto-resolution, the tool catalogue).
type FoodLog struct {
	ID             int64
	UserID         int64
	LoggedAt       time.Time
	MealLabel      string
	Items          []FoodItem
	CaloriesKcal   float64
	ProteinG       float64
	CarbsG         float64
	FatG           float64
	FiberG         float64
	SodiumMg       float64
	Servings       float64
	MealTemplateID *int64
	Notes          string
	CreatedAt      time.Time
}

// FoodItem is one parsed ingredient/food entry within a FoodLog.Items array.
type FoodItem struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity,omitempty"`
	Calories float64 `json:"calories,omitempty"`
}

// HydrationLog records one fluid-intake event, normalized to milliliters.
type HydrationLog struct {
	ID         int64
	UserID     int64
	LoggedAt   time.Time
	VolumeML   float64
	SourceUnit HydrationUnit
	Notes      string
	CreatedAt  time.Time
}

// VitalsLog records a blood-pressure/heart-rate/weight reading. Zero values
// mean "not provided" for that particular field within the same event.
type VitalsLog struct {
	ID            int64
	UserID        int64
	LoggedAt      time.Time
	BPSystolic    int
	BPDiastolic   int
	HeartRate     int
	WeightKG      float64
	BloodGlucose  float64
	TemperatureC  float64
	SPO2          float64
	Notes         string
	CreatedAt     time.Time
}

// ExerciseLog records one exercise session.
type ExerciseLog struct {
	ID              int64
	UserID          int64
	LoggedAt        time.Time
	ExerciseType    string
	DurationMinutes int
	Intensity       string
	CaloriesKcal    float64
	Notes           string
	CreatedAt       time.Time
}

// SupplementLog records one medication/supplement intake event. ItemName is
// the canonical name resolved against UserSettings.Medications/Supplements.
type SupplementLog struct {
	ID        int64
	UserID    int64
	LoggedAt  time.Time
	ItemType  ChecklistItemType
	ItemName  string
	Dose      string
	Notes     string
	CreatedAt time.Time
}

// FastingLog tracks one fast window. FastEnd is nil while the fast is open;
// any row with FastEnd nil and FastStart older than FastingAutoCloseAfter is
// forcibly closed on next read (the analysis run key ownership invariants).
type FastingLog struct {
	ID              int64
	UserID          int64
	FastStart       time.Time
	FastEnd         *time.Time
	DurationMinutes int
	Notes           string
	CreatedAt       time.Time
}

// FastingAutoCloseAfter is the maximum duration an open fast may remain
// unclosed before the store forcibly closes it on read.
const FastingAutoCloseAfter = 36 * time.Hour

// Open reports whether the fast has not yet ended.
func (f *FastingLog) Open() bool { return f != nil && f.FastEnd == nil }

// SleepLog tracks one sleep interval.
type SleepLog struct {
	ID              int64
	UserID          int64
	SleepStart      time.Time
	SleepEnd        time.Time
	DurationMinutes int
	Quality         int
	Notes           string
	CreatedAt       time.Time
}

// ChecklistItemType enumerates the two checklist domains.
type ChecklistItemType string

const (
	ChecklistItemMedication ChecklistItemType = "medication"
	ChecklistItemSupplement ChecklistItemType = "supplement"
)
