package turn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasGoalSignal(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"my goal is to lose 10 pounds", true},
		{"I'm trying to build more muscle this year", true},
		{"what's a good protein source?", false},
		{"logged 2 eggs and toast", false},
		{"I'd like to hit 10k steps a day", true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, hasGoalSignal(c.msg), c.msg)
	}
}

func TestGoalAlreadyCovered(t *testing.T) {
	existing := []string{"Lose 10 pounds by summer", "Sleep 8 hours a night"}

	require.True(t, goalAlreadyCovered(existing, "lose 10 pounds by summer"))
	require.True(t, goalAlreadyCovered(existing, "Lose ten pounds by summer"), "near-duplicate phrasing should still match on shared significant words")
	require.False(t, goalAlreadyCovered(existing, "Run a 5k in under 25 minutes"))
}

func TestGoalAlreadyCoveredEmptyCandidate(t *testing.T) {
	require.False(t, goalAlreadyCovered([]string{"Sleep more"}, "   "))
}

func TestSignificantWordsDropsStopWords(t *testing.T) {
	words := significantWords("I want to lose ten pounds by summer")
	require.False(t, words["i"])
	require.False(t, words["to"])
	require.False(t, words["want"])
	require.True(t, words["lose"])
	require.True(t, words["summer"])
}
