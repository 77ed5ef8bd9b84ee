package timeinfer

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// baseMessages are phrases carrying no explicit clock or date token, so
// inferLocalTime/inferLocalDate fall back to their medium/low-confidence
// keyword or default paths.
var baseMessages = []string{
	"took my vitamin d",
	"drank a protein shake",
	"logged my weight",
	"did some stretching",
	"feeling good today",
}

// TestTimeInferenceMonotonicityProperty verifies Property 7 (Time inference
// monotonicity): adding an explicit clock token to a message never lowers
// the resulting confidence, since inferLocalTime's explicit-clock branch is
// always ConfidenceHigh and combineConfidence takes the lower of date/time.
func TestTimeInferenceMonotonicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("appending an explicit clock token never lowers confidence", prop.ForAll(
		func(baseIdx, hour, minute int) bool {
			base := baseMessages[baseIdx%len(baseMessages)]
			without := InferEventDatetime(base, nil, "UTC")

			withClock := fmt.Sprintf("%s at %02d:%02d", base, hour, minute)
			with := InferEventDatetime(withClock, nil, "UTC")

			return confidenceRank[with.Confidence] >= confidenceRank[without.Confidence]
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 23),
		gen.IntRange(0, 59),
	))

	properties.Property("appending an explicit ISO date token never lowers confidence", prop.ForAll(
		func(baseIdx, month, day int) bool {
			base := baseMessages[baseIdx%len(baseMessages)]
			without := InferEventDatetime(base, nil, "UTC")

			if month < 1 {
				month = 1
			}
			if day < 1 {
				day = 1
			}
			withDate := fmt.Sprintf("%s on 2026-%02d-%02d", base, month, day)
			with := InferEventDatetime(withDate, nil, "UTC")

			return confidenceRank[with.Confidence] >= confidenceRank[without.Confidence]
		},
		gen.IntRange(0, 1000),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	))

	properties.TestingRun(t)
}

func TestCombineConfidence_TakesTheLowerRank(t *testing.T) {
	cases := []struct {
		a, b Confidence
		want Confidence
	}{
		{ConfidenceHigh, ConfidenceLow, ConfidenceLow},
		{ConfidenceLow, ConfidenceHigh, ConfidenceLow},
		{ConfidenceMedium, ConfidenceHigh, ConfidenceMedium},
		{ConfidenceHigh, ConfidenceHigh, ConfidenceHigh},
	}
	for _, c := range cases {
		if got := combineConfidence(c.a, c.b); got != c.want {
			t.Errorf("combineConfidence(%q, %q) = %q, want %q", c.a, c.b, got, c.want)
		}
	}
}
