package turn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/store"
)

// stubClient is the minimal model.Client needed to exercise
// stepPersistence, which only reads ReasoningModel() off st.client.
type stubClient struct{}

func (stubClient) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	return nil, nil
}
func (stubClient) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	return nil, nil
}
func (stubClient) CompleteVision(ctx context.Context, prompt string, img model.ImagePart, m string) (*model.Response, error) {
	return nil, nil
}
func (stubClient) ValidateKey(ctx context.Context) error { return nil }
func (stubClient) ReasoningModel() string                { return "stub-reasoning" }
func (stubClient) UtilityModel() string                  { return "stub-utility" }
func (stubClient) DeepThinkingModel() string              { return "stub-deep" }
func (stubClient) SupportsWebSearch() bool                { return false }

// TestStepPersistence_AlwaysEmitsTerminalChunkDone is the streaming
// contract (Property 9): every turn that reaches persistence closes its
// stream with a terminal ChunkDone chunk, never leaving a caller blocked
// waiting on more output.
func TestStepPersistence_AlwaysEmitsTerminalChunkDone(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	o := New(Deps{Store: db})

	st := &turnState{
		userID:       1,
		client:       stubClient{},
		responseText: "ok",
		scope:        NewScope(),
		ch:           make(chan Chunk, 4),
	}

	_, err = o.stepPersistence(context.Background(), st)
	require.NoError(t, err)

	select {
	case c := <-st.ch:
		require.Equal(t, ChunkDone, c.Type)
	default:
		t.Fatal("expected a terminal ChunkDone chunk to have been emitted")
	}
}

// TestStepPersistence_TerminatedTurnSkipsPersistenceAndEmitsNothing
// documents the short-circuit half of the same contract: a turn that was
// already terminated earlier in the pipeline (e.g. a pre-flight error)
// must not persist a second time or emit a second terminal chunk here —
// the path that terminated it already emitted its own ChunkError/ChunkDone.
func TestStepPersistence_TerminatedTurnSkipsPersistenceAndEmitsNothing(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	o := New(Deps{Store: db})

	st := &turnState{
		userID:     1,
		terminated: true,
		scope:      NewScope(),
		ch:         make(chan Chunk, 4),
	}

	_, err = o.stepPersistence(context.Background(), st)
	require.NoError(t, err)

	select {
	case c := <-st.ch:
		t.Fatalf("expected no chunk to be emitted for an already-terminated turn, got %v", c)
	default:
	}
}
