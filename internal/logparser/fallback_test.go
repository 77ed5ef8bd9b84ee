package logparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTokenToMinutes(t *testing.T) {
	cases := []struct {
		token string
		want  int
		ok    bool
	}{
		{"7:30am", 7*60 + 30, true},
		{"7:30pm", 19*60 + 30, true},
		{"12am", 0, true},
		{"12pm", 12 * 60, true},
		{"19:30", 19*60 + 30, true},
		{"25:00", 0, false},
		{"", 0, false},
		{"not a time", 0, false},
	}
	for _, c := range cases {
		got, ok := clockTokenToMinutes(c.token)
		assert.Equal(t, c.ok, ok, "token %q", c.token)
		if c.ok {
			assert.Equal(t, c.want, got, "token %q", c.token)
		}
	}
}

func TestDurationMinutesFromTokens_WrapsPastMidnight(t *testing.T) {
	d, ok := durationMinutesFromTokens("11pm", "7am")
	require.True(t, ok)
	assert.Equal(t, 8*60, d)
}

func TestDurationMinutesFromTokens_SameDay(t *testing.T) {
	d, ok := durationMinutesFromTokens("9am", "5pm")
	require.True(t, ok)
	assert.Equal(t, 8*60, d)
}

func TestDeterministicFoodParse_ExtractsMealLabelAndItems(t *testing.T) {
	parsed := deterministicFoodParse("I had oatmeal and coffee for breakfast")
	assert.Equal(t, "Breakfast", parsed["meal_label"])
	items, ok := parsed["items"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, items)
	assert.Equal(t, fallbackNote, parsed["notes"])
}

func TestDeterministicFoodParse_ExtractsCalories(t *testing.T) {
	parsed := deterministicFoodParse("Had a protein bar, 210 calories")
	assert.Equal(t, 210.0, parsed["calories"])
}

func TestDeterministicVitalsParse_ExtractsBPAndHeartRate(t *testing.T) {
	parsed := deterministicVitalsParse("bp 128/84 hr 72 just now")
	assert.Equal(t, 128, parsed["bp_systolic"])
	assert.Equal(t, 84, parsed["bp_diastolic"])
	assert.Equal(t, 72, parsed["heart_rate"])
}

func TestDeterministicVitalsParse_ConvertsPoundsToKg(t *testing.T) {
	parsed := deterministicVitalsParse("weighed in at 180 lb today")
	weight, ok := parsed["weight_kg"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 81.63, weight, 0.01)
}

func TestDeterministicExerciseParse_ClassifiesTypeAndDuration(t *testing.T) {
	parsed := deterministicExerciseParse("did a 45 min HIIT workout")
	assert.Equal(t, "hiit", parsed["exercise_type"])
	assert.Equal(t, 45, parsed["duration_minutes"])
}

func TestDeterministicSupplementParse_SplitsMultipleNames(t *testing.T) {
	parsed := deterministicSupplementParse("Took my vitamin D and magnesium this morning")
	require.NotNil(t, parsed)
	supplements, ok := parsed["supplements"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, supplements, 2)
	assert.Equal(t, "morning", parsed["timing"])
}

func TestDeterministicFastingParse_BrokeMyFastIsEnd(t *testing.T) {
	parsed := deterministicFastingParse("I broke my fast at 1pm")
	assert.Equal(t, "end", parsed["action"])
}

func TestDeterministicFastingParse_StartingIsStart(t *testing.T) {
	parsed := deterministicFastingParse("Starting my fast now")
	assert.Equal(t, "start", parsed["action"])
}

func TestDeterministicFastingParse_LastMealFirstMealGivesBothEndpoints(t *testing.T) {
	parsed := deterministicFastingParse("Last meal was at 7pm, first meal today at 1pm")
	assert.Equal(t, "end", parsed["action"])
	assert.Equal(t, "7pm", parsed["fast_start"])
	assert.Equal(t, "1pm", parsed["fast_end"])
}

func TestDeterministicSleepParse_StartAndEndCuesGiveDuration(t *testing.T) {
	parsed := deterministicSleepParse("Went to bed at 11pm, woke up at 7am")
	assert.Equal(t, 8*60, parsed["duration_minutes"])
}

func TestDeterministicHydrationParse_ConvertsUnitsToML(t *testing.T) {
	parsed := deterministicHydrationParse("drank 2 cups of water")
	assert.Equal(t, 500.0, parsed["amount_ml"])
	assert.Equal(t, "water", parsed["source"])
}

func TestDeterministicHydrationParse_DefaultsToOneGlassWhenNoAmount(t *testing.T) {
	parsed := deterministicHydrationParse("had some coffee")
	assert.Equal(t, 250.0, parsed["amount_ml"])
	assert.Equal(t, "coffee", parsed["source"])
}
