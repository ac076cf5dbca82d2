// Package timecalc provides calendar and duration helpers.
package timecalc

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DayLayout is the ISO calendar-day layout used for entry dates.
const DayLayout = "2006-01-02"

// HoursWorked returns the span between a and b in hours, rounded to the
// nearest quarter hour. A negative span yields 0.
func HoursWorked(a, b time.Time) float64 {
	hours := b.Sub(a).Hours()
	if hours <= 0 {
		return 0
	}
	return math.Round(hours*4) / 4
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the most recent Sunday at local midnight.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// DayKey formats t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// NormalizeDay trims a timestamp-like date string to its YYYY-MM-DD prefix.
// Servers sometimes send "2024-01-08T00:00:00Z" where a plain date is meant.
func NormalizeDay(s string) string {
	if len(s) >= len(DayLayout) {
		return s[:len(DayLayout)]
	}
	return s
}

// ParseDay parses a YYYY-MM-DD date in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// FormatElapsed formats d as "{h}h {m}m", or "{m}m" when under an hour.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	h := total / 60
	m := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatHours renders an hour total without trailing zeros, e.g. "7.25h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}
