// Package timeinfer resolves the fuzzy time references in a user's message
// ("took my meds this morning", "had dinner at 7") into a concrete UTC
// timestamp, using the conversation's reference time and the user's
// timezone. It is a direct port of
// original_source/backend/utils/time_inference.py.
package timeinfer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Confidence ranks how certain an inference is, used to pick between
// date and time confidence and to decide whether the turn orchestrator
// should ask the user to confirm (the time-confirmation flow).
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var confidenceRank = map[Confidence]int{ConfidenceLow: 1, ConfidenceMedium: 2, ConfidenceHigh: 3}

func combineConfidence(a, b Confidence) Confidence {
	if confidenceRank[a] <= confidenceRank[b] {
		return a
	}
	return b
}

// Result is the outcome of inferring an event's timestamp from text.
type Result struct {
	EventUTC         time.Time
	Confidence       Confidence
	Reason           string
	HadExplicitDate  bool
	HadExplicitTime  bool
}

var months = map[string]int{
	"jan": 1, "january": 1, "feb": 2, "february": 2, "mar": 3, "march": 3,
	"apr": 4, "april": 4, "may": 5, "jun": 6, "june": 6, "jul": 7, "july": 7,
	"aug": 8, "august": 8, "sep": 9, "sept": 9, "september": 9, "oct": 10,
	"october": 10, "nov": 11, "november": 11, "dec": 12, "december": 12,
}

var (
	explicitClockRe  = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\s*(am|pm)?\b`)
	explicitClock2Re = regexp.MustCompile(`\b(1[0-2]|0?[1-9])\s*(am|pm)\b`)

	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDateRe = regexp.MustCompile(`\b([a-z]{3,9})\s+(\d{1,2})(?:,\s*(\d{4}))?\b`)

	timeAMPMRe  = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\s*(am|pm)\b`)
	timeHourRe  = regexp.MustCompile(`\b(1[0-2]|0?[1-9])\s*(am|pm)\b`)
	time24hRe   = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

func tzOrUTC(tzName string) *time.Location {
	name := strings.TrimSpace(tzName)
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func localReference(referenceUTC *time.Time, tzName string) time.Time {
	loc := tzOrUTC(tzName)
	if referenceUTC != nil {
		return referenceUTC.UTC().In(loc)
	}
	return time.Now().UTC().In(loc)
}

func hasAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func hasExplicitClock(text string) bool {
	return explicitClockRe.MatchString(text) || explicitClock2Re.MatchString(text)
}

func parseExplicitDate(text string, refLocal time.Time) (year, month, day int, ok bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if validDate(y, mo, d) {
			return y, mo, d, true
		}
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y := refLocal.Year()
		if m[3] != "" {
			yy, _ := strconv.Atoi(m[3])
			if yy < 100 {
				yy += 2000
			}
			y = yy
		}
		if validDate(y, mo, d) {
			return y, mo, d, true
		}
	}
	if m := monthDateRe.FindStringSubmatch(text); m != nil {
		monthName := strings.ToLower(m[1])
		if mo, known := months[monthName]; known {
			d, _ := strconv.Atoi(m[2])
			y := refLocal.Year()
			if m[3] != "" {
				y, _ = strconv.Atoi(m[3])
			}
			if validDate(y, mo, d) {
				return y, mo, d, true
			}
		}
	}
	return 0, 0, 0, false
}

func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1 {
		return false
	}
	return true
}

var pastMarkers = []string{"took", "had", "ate", "drank", "logged", "did", "went", "woke"}
var sameDayMarkers = []string{"this morning", "this afternoon", "this evening", "tonight", "lunch", "dinner", "breakfast"}

func inferLocalDate(text string, refLocal time.Time) (date time.Time, confidence Confidence, hadExplicit bool) {
	if y, mo, d, ok := parseExplicitDate(text, refLocal); ok {
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, refLocal.Location()), ConfidenceHigh, true
	}

	today := dateOnly(refLocal)
	if hasAny(text, "yesterday", "last night") {
		return today.AddDate(0, 0, -1), ConfidenceMedium, false
	}
	if hasAny(text, "tomorrow") {
		return today.AddDate(0, 0, 1), ConfidenceMedium, false
	}

	if refLocal.Hour() < 4 {
		if hasAny(text, sameDayMarkers...) && hasAny(text, pastMarkers...) {
			return today.AddDate(0, 0, -1), ConfidenceMedium, false
		}
		if hasAny(text, pastMarkers...) && hasExplicitClock(text) && strings.Contains(text, "pm") {
			return today.AddDate(0, 0, -1), ConfidenceMedium, false
		}
	}

	if hasAny(text, "now", "right now", "just now") {
		return today, ConfidenceMedium, false
	}

	return today, ConfidenceLow, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func parseExplicitTime(text string) (hour, minute int, ok bool) {
	if m := timeAMPMRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		h = applyMeridiem(h, m[3])
		return h, min, true
	}
	if m := timeHourRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		h = applyMeridiem(h, m[2])
		return h, 0, true
	}
	if m := time24hRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return h, min, true
	}
	return 0, 0, false
}

func applyMeridiem(h int, meridiem string) int {
	m := strings.ToLower(meridiem)
	if m == "pm" && h != 12 {
		h += 12
	}
	if m == "am" && h == 12 {
		h = 0
	}
	return h
}

func inferLocalTime(text string, refLocal time.Time) (hour, minute int, confidence Confidence, hadExplicit bool) {
	if h, min, ok := parseExplicitTime(text); ok {
		return h, min, ConfidenceHigh, true
	}
	if hasAny(text, "now", "right now", "just now") {
		return refLocal.Hour(), refLocal.Minute(), ConfidenceHigh, false
	}
	if hasAny(text, "breakfast", "this morning", "morning") {
		return 8, 0, ConfidenceMedium, false
	}
	if hasAny(text, "lunch", "with lunch", "noon") {
		return 12, 30, ConfidenceMedium, false
	}
	if hasAny(text, "afternoon") {
		return 15, 0, ConfidenceMedium, false
	}
	if hasAny(text, "dinner", "with dinner", "evening", "this evening") {
		return 18, 30, ConfidenceMedium, false
	}
	if hasAny(text, "night", "tonight", "bedtime", "before bed", "last night") {
		return 22, 0, ConfidenceMedium, false
	}
	return refLocal.Hour(), refLocal.Minute(), ConfidenceLow, false
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// InferEventDatetime infers the UTC timestamp a piece of text refers to,
// relative to referenceUTC (nil means "now") in the user's timezone.
func InferEventDatetime(text string, referenceUTC *time.Time, tzName string) Result {
	normalized := whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	refLocal := localReference(referenceUTC, tzName)

	localDate, dateConfidence, hadExplicitDate := inferLocalDate(normalized, refLocal)
	hour, minute, timeConfidence, hadExplicitTime := inferLocalTime(normalized, refLocal)

	localDT := time.Date(
		localDate.Year(), localDate.Month(), localDate.Day(),
		hour, minute, 0, 0, refLocal.Location(),
	)
	combined := combineConfidence(dateConfidence, timeConfidence)

	return Result{
		EventUTC:        localDT.UTC(),
		Confidence:      combined,
		Reason:          "date:" + string(dateConfidence) + ",time:" + string(timeConfidence),
		HadExplicitDate: hadExplicitDate,
		HadExplicitTime: hadExplicitTime,
	}
}

// InferEventDatetimeUTC is a convenience wrapper returning only the
// inferred UTC timestamp.
func InferEventDatetimeUTC(text string, referenceUTC *time.Time, tzName string) time.Time {
	return InferEventDatetime(text, referenceUTC, tzName).EventUTC
}

// InferTargetDateISO infers the local calendar date (YYYY-MM-DD) a piece
// of text refers to, used to bucket checklist items by local day.
func InferTargetDateISO(text string, referenceUTC *time.Time, tzName string) string {
	localRef := localReference(referenceUTC, tzName)
	inferredUTC := InferEventDatetime(text, referenceUTC, tzName).EventUTC
	return inferredUTC.In(localRef.Location()).Format("2006-01-02")
}
