package newsgrab

import "time"

// Calendar identifies how a source encodes its dates.
type Calendar string

// Supported calendars.
const (
	CalendarISO    Calendar = "iso"
	CalendarJalali Calendar = "jalali"

	// CalendarAuto selects Jalali when the text names a Jalali month.
	CalendarAuto Calendar = "auto"
)

// DateParser parses date text found on source pages.
type DateParser interface {
	// ParseDate returns the UTC instant described by text.
	// Returns EDATEPARSE if the text cannot be parsed.
	ParseDate(text string, calendar Calendar) (time.Time, error)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWithinAge reports whether t is at most maxAgeDays days before now.
// Dates are compared at day precision, so the boundary day is included.
func IsWithinAge(t, now time.Time, maxAgeDays int) bool {
	age := Day(now).Sub(Day(t))
	return age <= time.Duration(maxAgeDays)*24*time.Hour
}
