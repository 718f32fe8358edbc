// Package timeutil provides wall-clock time parsing and range checks for
// PawVision's time-gated behaviours (night mode, button disable windows,
// the play schedule).
//
// All times are local wall-clock "HH:MM" values with minute resolution.
// Ranges are half-open: [start, end). A range whose start is at or after
// its end wraps midnight (e.g. 22:00-06:00).
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// minutesPerHour converts hours to minutes since midnight.
const minutesPerHour = 60

// Clock is a wall-clock time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string into a Clock.
//
// Returns an error for malformed strings or out-of-range values
// (hour 0-23, minute 0-59).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("parsing clock %q: expected HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("parsing clock %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("parsing clock %q: %w", s, err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("parsing clock %q: hour or minute out of range", s)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// MustParseClock is ParseClock that panics on error. For use in tests and
// package-level defaults with known-good literals.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the clock value as minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*minutesPerHour + c.Minute
}

// String returns the clock in HH:MM format.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// InRange reports whether now falls inside [start, end).
//
// When start precedes end the range is a plain same-day interval. When
// start is at or after end the range wraps midnight: now >= start OR
// now < end. Callers that treat an unset bound as "no restriction" must
// decide that before calling (see the night-mode and button-disable call
// sites).
func InRange(start, end Clock, now time.Time) bool {
	current := now.Hour()*minutesPerHour + now.Minute()
	startMin := start.Minutes()
	endMin := end.Minutes()

	if startMin < endMin {
		return current >= startMin && current < endMin
	}
	// Overnight range (e.g. 22:30-06:15).
	return current >= startMin || current < endMin
}

// MinuteString formats a time as the HH:MM key used by the play schedule.
func MinuteString(t time.Time) string {
	return t.Format("15:04")
}
