package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for task dates.
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. Date strings compare
// lexically in calendar order.
type Date string

// ParseDate validates s as a calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// MustDate is ParseDate for constants in tests and defaults.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Today returns the current calendar date in loc.
func Today(c Clock, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(c.Now().In(loc))
}

// midnight anchors the date at UTC midnight so day arithmetic never crosses
// a DST transition.
func (d Date) midnight() (time.Time, bool) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether d is a real calendar date.
func (d Date) Valid() bool {
	_, ok := d.midnight()
	return ok
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	t, ok := d.midnight()
	if !ok {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// Weekday returns the day of the week, Sunday for invalid dates.
func (d Date) Weekday() time.Weekday {
	t, ok := d.midnight()
	if !ok {
		return time.Sunday
	}
	return t.Weekday()
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d < o }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d > o }

// String implements fmt.Stringer.
func (d Date) String() string { return string(d) }

// StartOfWeek returns the Sunday on or before d.
func (d Date) StartOfWeek() Date {
	return d.AddDays(-int(d.Weekday()))
}

// ParseTimeOfDay parses HH:MM and returns minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// EpochMillis converts t to epoch milliseconds.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
