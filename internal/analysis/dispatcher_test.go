package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return NewDispatcher(nil, telemetry.NewNoopLogger(), DispatchConfig{})
}

// TestDispatcher_ClaimRelease_SingleFlightPerUser is the in-flight half of
// scenario S6: a second claim for a user already in flight is refused,
// and release frees the slot for a subsequent claim.
func TestDispatcher_ClaimRelease_SingleFlightPerUser(t *testing.T) {
	d := newTestDispatcher(t)

	require.True(t, d.claim(7))
	assert.False(t, d.claim(7), "a second claim while one is in flight must be refused")

	d.release(7)
	assert.True(t, d.claim(7), "claim must succeed again once the prior holder released")
}

func TestDispatcher_ClaimRelease_DistinctUsersDoNotContend(t *testing.T) {
	d := newTestDispatcher(t)

	require.True(t, d.claim(1))
	assert.True(t, d.claim(2), "distinct users must not contend for the same in-flight slot")
}

func TestDispatcher_Release_NeverClaimedIsANoop(t *testing.T) {
	d := newTestDispatcher(t)
	d.release(99)
	assert.True(t, d.claim(99))
}
