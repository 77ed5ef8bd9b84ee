package turn

import "time"

// Config carries the tunables the configuration surface pins as environment variables.
// internal/config.Load populates this from the process environment; tests
// construct it by hand.
type Config struct {
	// UtilityCallBudgetLogTurn bounds utility-model calls on a turn whose
	// intent category is one of the log_* categories.
	UtilityCallBudgetLogTurn int
	// UtilityCallBudgetNonLogTurn bounds utility-model calls on every
	// other category.
	UtilityCallBudgetNonLogTurn int

	// EnableWebSearch gates the web_search tool call in step 14 entirely.
	EnableWebSearch bool
	// WebSearchAllowedSpecialists restricts which specialists may trigger
	// a web search; empty means all specialists may.
	WebSearchAllowedSpecialists []string
	// WebSearchAllowedCategories is the "ask" subset of intent categories
	// eligible for a web search.
	WebSearchAllowedCategories []string
	WebSearchMaxResults        int
	WebSearchTimeout           time.Duration

	// RecentMessageWindow bounds how many prior messages step 18 fetches
	// for the model's conversation context.
	RecentMessageWindow int

	// ProfileAutoSyncMinConfidence is the intent-confidence floor gating
	// step 11 for non-log categories.
	ProfileAutoSyncMinConfidence float64

	// FeedbackDedupeWindow bounds how far back step 7 looks for a
	// near-duplicate feedback title before inserting a new entry.
	FeedbackDedupeWindow time.Duration
}

// DefaultConfig returns the documented defaults for every Config field.
func DefaultConfig() Config {
	return Config{
		UtilityCallBudgetLogTurn:     1,
		UtilityCallBudgetNonLogTurn:  3,
		EnableWebSearch:              true,
		WebSearchAllowedSpecialists:  []string{"nutritionist", "sleep_expert", "movement_coach", "supplement_auditor", "safety_clinician"},
		WebSearchAllowedCategories:   []string{"ask_nutrition", "ask_exercise", "ask_sleep", "ask_supplement", "ask_medical"},
		WebSearchMaxResults:          5,
		WebSearchTimeout:             20 * time.Second,
		RecentMessageWindow:          20,
		ProfileAutoSyncMinConfidence: 0.6,
		FeedbackDedupeWindow:         30 * time.Minute,
	}
}
