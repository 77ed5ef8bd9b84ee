package turn

import (
	"testing"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestChecklistTargetDateDefaultsToUTC(t *testing.T) {
	st := &turnState{}
	got := checklistTargetDate(st)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), got)
}

func TestChecklistTargetDateUsesUserTimezone(t *testing.T) {
	st := &turnState{settings: &domain.UserSettings{Timezone: "Pacific/Kiritimati"}}
	loc, err := time.LoadLocation("Pacific/Kiritimati")
	require.NoError(t, err)

	got := checklistTargetDate(st)
	require.Equal(t, time.Now().In(loc).Format("2006-01-02"), got)
}

func TestChecklistTargetDateFallsBackOnBadTimezone(t *testing.T) {
	st := &turnState{settings: &domain.UserSettings{Timezone: "Not/AZone"}}
	got := checklistTargetDate(st)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), got)
}
