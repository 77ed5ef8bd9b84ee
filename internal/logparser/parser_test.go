package logparser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
)

func TestParseLogData_NoModelCallUsesDeterministicFallback(t *testing.T) {
	parsed, err := ParseLogData(context.Background(), nil, "I had oatmeal for breakfast", intent.CategoryLogFood, Options{AllowModelCall: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, fallbackNote, parsed["notes"])
}

func TestParseLogData_UnmappedCategoryReturnsNil(t *testing.T) {
	parsed, err := ParseLogData(context.Background(), nil, "hey", intent.CategoryGeneralChat, Options{}, nil)
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

// TestAssessParseConfidence_FallbackAlwaysLow is Property 8 (low-confidence
// confirmation): any result carrying the deterministic fallback marker is
// always reported Low, regardless of how complete its fields look,
// guaranteeing the turn pipeline asks the user to confirm rather than
// silently trusting a regex guess.
func TestAssessParseConfidence_FallbackAlwaysLow(t *testing.T) {
	parsed := map[string]any{
		"items":     []any{map[string]any{"name": "oatmeal"}},
		"calories":  400.0,
		"protein_g": 12.0,
		"carbs_g":   60.0,
		"fat_g":     8.0,
		"fiber_g":   5.0,
		"notes":     fallbackNote,
	}
	confidence, _ := AssessParseConfidence(parsed, intent.CategoryLogFood)
	assert.Equal(t, ConfidenceLow, confidence)
}

func TestAssessParseConfidence_MissingCriticalFieldIsLow(t *testing.T) {
	parsed := map[string]any{
		"items": []any{},
		"notes": "",
	}
	confidence, missing := AssessParseConfidence(parsed, intent.CategoryLogFood)
	assert.Equal(t, ConfidenceLow, confidence)
	assert.NotEmpty(t, missing)
}

func TestAssessParseConfidence_AllFieldsPresentIsHigh(t *testing.T) {
	parsed := map[string]any{
		"items":     []any{map[string]any{"name": "oatmeal"}},
		"calories":  400.0,
		"protein_g": 12.0,
		"carbs_g":   60.0,
		"fat_g":     8.0,
		"fiber_g":   5.0,
		"notes":     "",
	}
	confidence, missing := AssessParseConfidence(parsed, intent.CategoryLogFood)
	assert.Equal(t, ConfidenceHigh, confidence)
	assert.Empty(t, missing)
}

func TestAssessParseConfidence_HalfNotableFieldsMissingIsMedium(t *testing.T) {
	parsed := map[string]any{
		"items":     []any{map[string]any{"name": "oatmeal"}},
		"calories":  400.0,
		"protein_g": nil,
		"carbs_g":   nil,
		"fat_g":     nil,
		"fiber_g":   nil,
		"notes":     "",
	}
	confidence, _ := AssessParseConfidence(parsed, intent.CategoryLogFood)
	assert.Equal(t, ConfidenceMedium, confidence)
}
