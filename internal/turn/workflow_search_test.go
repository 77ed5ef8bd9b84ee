package turn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringInList(t *testing.T) {
	list := []string{"nutritionist", "sleep_expert"}
	require.True(t, stringInList(list, "nutritionist"))
	require.False(t, stringInList(list, "movement_coach"))
	require.False(t, stringInList(nil, "anything"))
}

func TestTimeQuestionRegexMatchesCommonPhrasings(t *testing.T) {
	positives := []string{
		"what time is it right now?",
		"What's the time?",
		"what is today's date?",
		"what day is it",
	}
	for _, p := range positives {
		require.True(t, timeQuestionRe.MatchString(p), p)
	}
	require.False(t, timeQuestionRe.MatchString("I logged breakfast at 8am"))
}
