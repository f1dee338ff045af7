// Package convert holds the unit and presentation helpers shared by the HTTP
// layer and the middleware: window units to milliseconds, loose boolean
// parsing, and human-readable durations and timestamps.
package convert

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/cases"
)

// Supported window units.
const (
	UnitMilliseconds = "ms"
	UnitSeconds      = "seconds"
	UnitSecs         = "secs"
	UnitMinutes      = "minutes"
	UnitMins         = "mins"
)

// foldCase builds a Caser per call; Casers carry state and cannot be shared
// between goroutines.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// IsKnownUnit reports whether unit is one of the supported window units.
func IsKnownUnit(unit string) bool {
	switch foldCase(unit) {
	case UnitMilliseconds, UnitSeconds, UnitSecs, UnitMinutes, UnitMins:
		return true
	}
	return false
}

// ToMilliseconds converts value in unit to milliseconds. Windows are zero
// based, so whole seconds and minutes lose one millisecond: 10 seconds is
// 9999 ms. Milliseconds and unknown units are returned unchanged.
func ToMilliseconds(value int64, unit string) int64 {
	switch foldCase(unit) {
	case UnitSeconds, UnitSecs:
		return value*1000 - 1
	case UnitMinutes, UnitMins:
		return value*60000 - 1
	default:
		return value
	}
}

// maxDurationMs is the largest millisecond count a time.Duration can hold
const maxDurationMs = math.MaxInt64 / int64(time.Millisecond)

// ToDuration is ToMilliseconds as a time.Duration. Windows too long for a
// Duration saturate at the largest one instead of wrapping negative.
func ToDuration(value int64, unit string) time.Duration {
	ms := ToMilliseconds(value, unit)
	if ms > maxDurationMs {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// ParseBoolish accepts "true", "t", "1", "yes" and "format" in any case.
// Everything else, including the empty string, is false.
func ParseBoolish(s string) bool {
	switch foldCase(s) {
	case "true", "t", "1", "yes", "format":
		return true
	}
	return false
}

// FormatHMS renders a millisecond duration as [HH:]MM:SS.t where t is the
// tenths digit. Hours wrap at 24.
func FormatHMS(ms int64) string {
	tenths := (ms % 1000) / 100
	seconds := (ms / 1000) % 60
	minutes := (ms / (1000 * 60)) % 60
	hours := (ms / (1000 * 60 * 60)) % 24

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%d", hours, minutes, seconds, tenths)
	}
	return fmt.Sprintf("%02d:%02d.%d", minutes, seconds, tenths)
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with milliseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
