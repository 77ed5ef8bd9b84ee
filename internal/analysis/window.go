package analysis

import (
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// Window is one daily/weekly/monthly rollup period, grounded on
// original_source/backend/services/analysis_service.py's AnalysisWindow
// dataclass. PeriodStart/PeriodEnd are local calendar dates (stored at
// midnight UTC) inclusive on both ends.
type Window struct {
	RunType     domain.RunType
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// windowFor builds the period boundaries for a run type ending on
// targetDay, mirroring _window_for: daily is a single day, weekly is the
// trailing 7 days, monthly the trailing 30.
func windowFor(runType domain.RunType, targetDay time.Time) Window {
	switch runType {
	case domain.RunDaily:
		return Window{RunType: runType, PeriodStart: targetDay, PeriodEnd: targetDay}
	case domain.RunWeekly:
		return Window{RunType: runType, PeriodStart: targetDay.AddDate(0, 0, -6), PeriodEnd: targetDay}
	case domain.RunMonthly:
		return Window{RunType: runType, PeriodStart: targetDay.AddDate(0, 0, -29), PeriodEnd: targetDay}
	default:
		return Window{RunType: runType, PeriodStart: targetDay, PeriodEnd: targetDay}
	}
}

// datesInclusive counts calendar days spanned by [start, end], at least 1.
func datesInclusive(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// calcSlope reports the simple first-to-last delta used as a trend
// indicator for vitals series, matching _calc_slope. Returns false when
// fewer than two points are available.
func calcSlope(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	return round4(values[len(values)-1] - values[0]), true
}

func round4(v float64) float64 { return roundN(v, 4) }
func round2f(v float64) float64 { return roundN(v, 2) }

func roundN(v float64, places int) float64 {
	mul := 1.0
	for i := 0; i < places; i++ {
		mul *= 10
	}
	return float64(int64(v*mul+sign(v)*0.5)) / mul
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// monthlyDueDay clamps preferredDay to the last valid day of (year, month),
// matching _monthly_due_day's calendar.monthrange bound.
func monthlyDueDay(year int, month time.Month, preferredDay int) time.Time {
	if preferredDay < 1 {
		preferredDay = 1
	}
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if preferredDay > lastDay {
		preferredDay = lastDay
	}
	return time.Date(year, month, preferredDay, 0, 0, 0, 0, time.UTC)
}

// shiftMonth moves (year, month) by deltaMonths, matching _shift_month.
func shiftMonth(year int, month time.Month, deltaMonths int) (int, time.Month) {
	idx := year*12 + (int(month) - 1) + deltaMonths
	outYear := idx / 12
	outMonth := idx%12 + 1
	if idx < 0 && idx%12 != 0 {
		outYear--
		outMonth += 12
	}
	return outYear, time.Month(outMonth)
}

// candidateDueTargets enumerates up to maxWindows due target days for
// runType as of referenceDay, oldest first, matching
// _candidate_due_targets. weeklyWeekday uses Go's time.Weekday numbering
// (0=Sunday..6=Saturday); dispatcher.go passes the configured value
// through unchanged.
func candidateDueTargets(runType domain.RunType, referenceDay time.Time, maxWindows int, weeklyWeekday time.Weekday, monthlyDay int) []time.Time {
	if maxWindows < 1 {
		maxWindows = 1
	}
	if maxWindows > 60 {
		maxWindows = 60
	}

	switch runType {
	case domain.RunDaily:
		out := make([]time.Time, 0, maxWindows)
		for offset := maxWindows - 1; offset >= 0; offset-- {
			out = append(out, referenceDay.AddDate(0, 0, -offset))
		}
		return out

	case domain.RunWeekly:
		daysSince := (int(referenceDay.Weekday()) - int(weeklyWeekday) + 7) % 7
		latestDue := referenceDay.AddDate(0, 0, -daysSince)
		seen := map[string]bool{}
		var out []time.Time
		for offset := 0; offset < maxWindows; offset++ {
			t := latestDue.AddDate(0, 0, -7*offset)
			key := t.Format("2006-01-02")
			if !seen[key] {
				seen[key] = true
				out = append(out, t)
			}
		}
		sortTimes(out)
		return out

	case domain.RunMonthly:
		seen := map[string]bool{}
		var out []time.Time
		for offset := 0; offset < maxWindows; offset++ {
			y, m := shiftMonth(referenceDay.Year(), referenceDay.Month(), -offset)
			due := monthlyDueDay(y, m, monthlyDay)
			if due.After(referenceDay) {
				continue
			}
			key := due.Format("2006-01-02")
			if !seen[key] {
				seen[key] = true
				out = append(out, due)
			}
		}
		sortTimes(out)
		return out
	}
	return nil
}

func sortTimes(t []time.Time) {
	for i := 1; i < len(t); i++ {
		for j := i; j > 0 && t[j].Before(t[j-1]); j-- {
			t[j], t[j-1] = t[j-1], t[j]
		}
	}
}
