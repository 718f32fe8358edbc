package timeutil

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    Clock
		wantErr bool
	}{
		{"00:00", Clock{0, 0}, false},
		{"09:30", Clock{9, 30}, false},
		{"23:59", Clock{23, 59}, false},
		{"24:00", Clock{}, true},
		{"12:60", Clock{}, true},
		{"-1:00", Clock{}, true},
		{"12", Clock{}, true},
		{"12:00:00", Clock{}, true},
		{"ab:cd", Clock{}, true},
		{"", Clock{}, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestClock_Minutes(t *testing.T) {
	if got := (Clock{22, 30}).Minutes(); got != 1350 {
		t.Errorf("Minutes() = %d, want 1350", got)
	}
	if got := (Clock{0, 0}).Minutes(); got != 0 {
		t.Errorf("Minutes() = %d, want 0", got)
	}
}

func TestClock_String(t *testing.T) {
	if got := (Clock{6, 5}).String(); got != "06:05" {
		t.Errorf("String() = %q, want %q", got, "06:05")
	}
}

// at builds a time on an arbitrary date with the given hour and minute.
func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.Local)
}

func TestInRange_SameDay(t *testing.T) {
	start := MustParseClock("09:00")
	end := MustParseClock("17:30")

	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(8, 59), false},
		{at(9, 0), true}, // inclusive start
		{at(12, 0), true},
		{at(17, 29), true},
		{at(17, 30), false}, // exclusive end
		{at(23, 0), false},
	}

	for _, tt := range tests {
		if got := InRange(start, end, tt.now); got != tt.want {
			t.Errorf("InRange(09:00, 17:30, %s) = %v, want %v",
				MinuteString(tt.now), got, tt.want)
		}
	}
}

func TestInRange_WrapsMidnight(t *testing.T) {
	start := MustParseClock("22:00")
	end := MustParseClock("06:00")

	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(21, 59), false},
		{at(22, 0), true},
		{at(23, 59), true},
		{at(0, 0), true},
		{at(5, 59), true},
		{at(6, 0), false},
		{at(12, 0), false},
	}

	for _, tt := range tests {
		if got := InRange(start, end, tt.now); got != tt.want {
			t.Errorf("InRange(22:00, 06:00, %s) = %v, want %v",
				MinuteString(tt.now), got, tt.want)
		}
	}
}

func TestInRange_EqualBounds(t *testing.T) {
	// start == end is treated as a wrapping range covering the full day.
	c := MustParseClock("08:00")
	if !InRange(c, c, at(8, 0)) {
		t.Error("InRange with equal bounds should contain the bound itself")
	}
	if !InRange(c, c, at(20, 0)) {
		t.Error("InRange with equal bounds should wrap the full day")
	}
}

func TestMinuteString(t *testing.T) {
	if got := MinuteString(at(7, 5)); got != "07:05" {
		t.Errorf("MinuteString = %q, want %q", got, "07:05")
	}
}
