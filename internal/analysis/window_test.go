package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowFor_DailyWeeklyMonthlySpans(t *testing.T) {
	target := day(2026, 2, 20)

	daily := windowFor(domain.RunDaily, target)
	assert.Equal(t, target, daily.PeriodStart)
	assert.Equal(t, target, daily.PeriodEnd)

	weekly := windowFor(domain.RunWeekly, target)
	assert.Equal(t, day(2026, 2, 14), weekly.PeriodStart)
	assert.Equal(t, target, weekly.PeriodEnd)
	assert.Equal(t, 7, datesInclusive(weekly.PeriodStart, weekly.PeriodEnd))

	monthly := windowFor(domain.RunMonthly, target)
	assert.Equal(t, day(2026, 1, 22), monthly.PeriodStart)
	assert.Equal(t, target, monthly.PeriodEnd)
	assert.Equal(t, 30, datesInclusive(monthly.PeriodStart, monthly.PeriodEnd))
}

func TestDatesInclusive_SingleDayIsOne(t *testing.T) {
	d := day(2026, 2, 20)
	assert.Equal(t, 1, datesInclusive(d, d))
}

func TestCalcSlope_FirstToLastDelta(t *testing.T) {
	slope, ok := calcSlope([]float64{80.0, 79.5, 78.2})
	require.True(t, ok)
	assert.Equal(t, -1.8, slope)
}

func TestCalcSlope_FewerThanTwoPointsReturnsFalse(t *testing.T) {
	_, ok := calcSlope([]float64{80.0})
	assert.False(t, ok)
	_, ok = calcSlope(nil)
	assert.False(t, ok)
}

func TestMonthlyDueDay_ClampsToLastValidDay(t *testing.T) {
	assert.Equal(t, day(2026, 2, 28), monthlyDueDay(2026, time.February, 31))
	assert.Equal(t, day(2026, 2, 15), monthlyDueDay(2026, time.February, 15))
	assert.Equal(t, day(2026, 2, 1), monthlyDueDay(2026, time.February, 0))
}

func TestShiftMonth_HandlesYearBoundaryBothDirections(t *testing.T) {
	y, m := shiftMonth(2026, time.January, -1)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.December, m)

	y, m = shiftMonth(2025, time.December, 1)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.January, m)

	y, m = shiftMonth(2026, time.June, 0)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.June, m)
}

func TestCandidateDueTargets_DailyReturnsTrailingDaysOldestFirst(t *testing.T) {
	ref := day(2026, 2, 20)
	out := candidateDueTargets(domain.RunDaily, ref, 3, time.Sunday, 1)
	require.Len(t, out, 3)
	assert.Equal(t, day(2026, 2, 18), out[0])
	assert.Equal(t, day(2026, 2, 19), out[1])
	assert.Equal(t, day(2026, 2, 20), out[2])
}

func TestCandidateDueTargets_WeeklyDedupesAndSortsAscending(t *testing.T) {
	ref := day(2026, 2, 20)
	out := candidateDueTargets(domain.RunWeekly, ref, 2, ref.Weekday(), 1)
	require.Len(t, out, 2)
	assert.True(t, out[0].Before(out[1]))
	assert.Equal(t, day(2026, 2, 20), out[1])
}

func TestCandidateDueTargets_MonthlyNeverProducesADateAfterReference(t *testing.T) {
	ref := day(2026, 2, 10)
	out := candidateDueTargets(domain.RunMonthly, ref, 3, time.Sunday, 15)
	for _, d := range out {
		assert.False(t, d.After(ref), "candidate due target %s must not be after reference %s", d, ref)
	}
}
