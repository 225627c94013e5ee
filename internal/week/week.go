// Package week maps timestamps to Monday-start week buckets and weekday columns.
//
// All functions work on the calendar date of t in t's own location. Callers
// convert to the user-facing location first; bucketing never uses UTC implicitly,
// so a late-evening clock-out stays on the day the user saw on the wall clock.
package week

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Day is a timesheet column, Monday=0 through Sunday=6.
type Day int

const (
	Mon Day = iota
	Tue
	Wed
	Thu
	Fri
	Sat
	Sun
)

// Days lists all columns in week order.
var Days = [7]Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

var dayNames = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func (d Day) String() string {
	if d < Mon || d > Sun {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

// Column returns the storage column name for d, e.g. "mon_hours".
func (d Day) Column() string { return d.String() + "_hours" }

// Midnight truncates t to 00:00 of its calendar date in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartMonday returns the Monday (at midnight) of the week containing t.
func StartMonday(t time.Time) time.Time {
	day := Midnight(t)
	wd := int(day.Weekday()) // Sunday=0 .. Saturday=6
	back := wd - 1
	if wd == 0 {
		back = 6
	}
	return day.AddDate(0, 0, -back)
}

// End returns the Sunday that closes the week starting at start.
func End(start time.Time) time.Time {
	return Midnight(start).AddDate(0, 0, 6)
}

// DayColumn maps t's weekday to its column. Sunday is the last column even
// though weeks begin on Monday.
func DayColumn(t time.Time) Day {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sun
	}
	return Day(wd - 1)
}

// Contains reports whether t's calendar date falls in [start, End(start)].
func Contains(start, t time.Time) bool {
	d := Midnight(t)
	s := Midnight(start)
	return !d.Before(s) && !d.After(End(s))
}

// ParseDate parses an ISO calendar date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate formats t's calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// DaysBetween returns the dates from a to b inclusive, one per calendar day.
func DaysBetween(a, b time.Time) []time.Time {
	a, b = Midnight(a), Midnight(b)
	var out []time.Time
	for d := a; !d.After(b); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Rebase returns midnight of t's calendar date, as seen in t's own location,
// expressed in loc. Dates stored without a zone compare correctly this way.
func Rebase(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
