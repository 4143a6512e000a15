package util

import "time"

var providerLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseInLocation parses a provider wall-clock timestamp ("2006-01-02 15:04:05", "2006-01-02")
// in loc. A nil loc means UTC.
func ParseInLocation(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range providerLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LoadLocation returns the named zone, or UTC when the name is empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NaiveDate keeps the wall-clock calendar date of t and drops clock and zone (UTC midnight).
func NaiveDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(NaiveDate(b).Sub(NaiveDate(a)).Hours() / 24)
}
