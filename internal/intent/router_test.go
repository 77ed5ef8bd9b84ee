package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntent_NoModelCallUsesHeuristic(t *testing.T) {
	opts := ClassifyOptions{AllowModelCall: false}

	tests := []struct {
		name         string
		message      string
		wantCategory Category
	}{
		{"food log", "I had oatmeal and coffee for breakfast", CategoryLogFood},
		{"vitals double intake", "bp 128/84 hr 72 just now", CategoryLogVitals},
		{"supplement log", "Took my vitamin D at 8:30pm", CategoryLogSupplement},
		{"fasting start", "I'm fasting starting now", CategoryLogFasting},
		{"fasting end", "I broke my fast", CategoryLogFasting},
		{"hydration", "drank water this morning", CategoryLogHydration},
		{"sleep log", "went to bed at 11", CategoryLogSleep},
		{"exercise log", "did a HIIT workout", CategoryLogExercise},
		{"general chat", "hey how's it going", CategoryGeneralChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyIntent(context.Background(), nil, tt.message, opts, nil)
			assert.Equal(t, tt.wantCategory, got.Category)
		})
	}
}

func TestClassifyIntent_FoodPlanningQuestionRoutesAsk(t *testing.T) {
	got := ClassifyIntent(context.Background(), nil, "Can I have pizza for dinner?", ClassifyOptions{AllowModelCall: false}, nil)
	assert.Equal(t, CategoryAskNutrition, got.Category)
}

func TestClassifyIntent_PastTenseFoodNeverReadsAsPlanning(t *testing.T) {
	got := ClassifyIntent(context.Background(), nil, "I had pizza for dinner, was that ok?", ClassifyOptions{AllowModelCall: false}, nil)
	assert.Equal(t, CategoryLogFood, got.Category)
}

func TestClassifyIntent_UserOverrideWins(t *testing.T) {
	got := ClassifyIntent(context.Background(), nil, "I had oatmeal for breakfast", ClassifyOptions{
		AllowModelCall: false,
		UserOverride:   "sleep_expert",
	}, nil)
	assert.Equal(t, "sleep_expert", got.Specialist)
}

func TestClassifyIntent_UserOverrideOutsideAllowedFallsBackToOrchestrator(t *testing.T) {
	got := ClassifyIntent(context.Background(), nil, "I had oatmeal for breakfast", ClassifyOptions{
		AllowModelCall:     false,
		UserOverride:       "sleep_expert",
		AllowedSpecialists: []string{"nutritionist", "orchestrator"},
	}, nil)
	assert.Equal(t, "orchestrator", got.Specialist)
}

// Every category the router can produce must resolve to a specialist the
// default allowed roster contains, or heuristicIntent's allowedContains
// guard silently downgrades every turn in that category to "orchestrator".
func TestCategoryToSpecialist_AllMapToAllowedRoster(t *testing.T) {
	for category, specialist := range CategoryToSpecialist {
		assert.True(t, allowedContains(DefaultAllowedSpecialists, specialist),
			"category %q maps to specialist %q, not in DefaultAllowedSpecialists", category, specialist)
	}
}

func TestValidCategories_MatchesCategoryToSpecialistKeys(t *testing.T) {
	require.Len(t, ValidCategories, len(CategoryToSpecialist))
	for category := range CategoryToSpecialist {
		assert.True(t, ValidCategories[category])
	}
}
