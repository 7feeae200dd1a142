package timecalc

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique entry ID from the timestamp and the first
// block of a random UUID.
func GenerateID(t time.Time) string {
	return fmt.Sprintf("%s-%s", t.Format("20060102-150405"), uuid.NewString()[:8])
}

// ISODate returns the UTC calendar date of t as "2006-01-02".
// Event IDs use it as their date bucket.
func ISODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ISODateHour returns the UTC date and hour of t as "2006-01-02T15".
func ISODateHour(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}

// FormatDuration formats a duration as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	sunday = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, t.Location())
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ClockOn returns hour:00 local wall-clock time on the calendar day of t,
// shifted by dayOffset days.
func ClockOn(t time.Time, dayOffset, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+dayOffset, hour, 0, 0, 0, t.Location())
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseLocal parses a user-supplied date or date-time in loc. Accepted
// layouts are RFC 3339, "2006-01-02 15:04", "2006-01-02T15:04" and "2006-01-02".
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
