package turn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstSentence(t *testing.T) {
	require.Equal(t, "New goal noted", firstSentence("New goal noted. Keep it up!"))
	require.Equal(t, "no terminal punctuation here", firstSentence("no terminal punctuation here"))
}

func TestStepPostStreamAmendmentsSkipsWhenAlreadyMentioned(t *testing.T) {
	o := &Orchestrator{}
	ch := make(chan Chunk, 4)
	st := &turnState{
		ch:           ch,
		responseText: "New goal noted: run a 5k, nice! Anything else?",
		goalSyncNote: "New goal noted: run a 5k. Acknowledge it naturally.",
	}

	_, err := o.stepPostStreamAmendments(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, "New goal noted: run a 5k, nice! Anything else?", st.responseText)
}

func TestStepPostStreamAmendmentsAppendsWhenMissing(t *testing.T) {
	o := &Orchestrator{}
	ch := make(chan Chunk, 4)
	st := &turnState{
		ch:              ch,
		responseText:    "Sounds good!",
		menuFollowUpNote: "Want me to log breakfast too?",
	}

	_, err := o.stepPostStreamAmendments(context.Background(), st)
	require.NoError(t, err)
	require.Contains(t, st.responseText, "Want me to log breakfast too?")
}

func TestStepPostStreamAmendmentsNoopWhenTerminated(t *testing.T) {
	o := &Orchestrator{}
	st := &turnState{terminated: true, responseText: "x"}
	_, err := o.stepPostStreamAmendments(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, "x", st.responseText)
}
