package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTime is returned for strings that are not a wall-clock time.
var ErrInvalidTime = errors.New("schedule: invalid time")

// LocalTime is a wall-clock minute of the day, 00:00 through 23:59.
type LocalTime int

const minutesPerDay = 24 * 60

// NewLocalTime builds a LocalTime from an hour and minute.
func NewLocalTime(hour, minute int) (LocalTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	return LocalTime(hour*60 + minute), nil
}

// MustLocalTime is NewLocalTime for constants; it panics on bad input.
func MustLocalTime(hour, minute int) LocalTime {
	t, err := NewLocalTime(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseLocalTime accepts "HH:MM", "HH:MM:SS" or an RFC3339 timestamp. A
// timestamp contributes its UTC hour and minute.
func ParseLocalTime(s string) (LocalTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewLocalTime(t.Hour(), t.Minute())
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return NewLocalTime(t.Hour(), t.Minute())
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

func (t LocalTime) Hour() int   { return int(t) / 60 }
func (t LocalTime) Minute() int { return int(t) % 60 }

// Valid reports whether t falls within a single day.
func (t LocalTime) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTime, int(t))
	}
	return json.Marshal(t.String())
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("schedule: decode time: %w", err)
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeRange is a half-open [Start, End) window within one day. End is not
// required to be after Start.
type TimeRange struct {
	Start LocalTime `json:"time_start"`
	End   LocalTime `json:"time_end"`
}

// DefaultRange is the range appended by AddRange and used to back-fill.
var DefaultRange = TimeRange{Start: MustLocalTime(8, 0), End: MustLocalTime(18, 0)}

// RangeField selects which end of a TimeRange UpdateRange changes.
type RangeField int

const (
	RangeStart RangeField = iota
	RangeEnd
)

// ParseRangeField maps the form names "start" and "end".
func ParseRangeField(s string) (RangeField, bool) {
	switch s {
	case "start", "time_start":
		return RangeStart, true
	case "end", "time_end":
		return RangeEnd, true
	}
	return 0, false
}
