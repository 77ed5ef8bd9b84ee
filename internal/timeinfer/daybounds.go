package timeinfer

import "time"

// TodayInTZ returns the local calendar date (midnight, in tz) for
// referenceUTC (nil means "now"). Used to bucket day-scoped queries
// (today's snapshot, daily analysis windows) by the user's local day
// rather than UTC day.
func TodayInTZ(referenceUTC *time.Time, tzName string) time.Time {
	return dateOnly(localReference(referenceUTC, tzName))
}

// DayBoundsUTC returns the [start, end) UTC instants spanning the local
// calendar day of localDate (which must already be a local midnight in
// tz, as returned by TodayInTZ) in tz.
func DayBoundsUTC(localDate time.Time, tzName string) (start, end time.Time) {
	loc := tzOrUTC(tzName)
	y, m, d := localDate.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC()
}
