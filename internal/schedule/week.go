package schedule

import (
	"fmt"
	"strings"
)

// DaySetting is the opening configuration for one day (or for every day when
// used as the shared daily entry).
type DaySetting struct {
	OpenAllDay bool        `json:"is_open_all_day"`
	OffDay     bool        `json:"is_off_day"`
	Ranges     []TimeRange `json:"slot_time"`
}

// Editable reports whether the day's ranges are shown for editing.
func (d DaySetting) Editable() bool {
	return !d.OpenAllDay && !d.OffDay
}

func (d DaySetting) clone() DaySetting {
	out := d
	if d.Ranges != nil {
		out.Ranges = append([]TimeRange(nil), d.Ranges...)
	}
	return out
}

// Day addresses one DaySetting inside WeekSettings.
type Day int

const (
	Daily Day = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists the seven individual days, Monday first.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// AllDays is Daily followed by Weekdays.
var AllDays = append([]Day{Daily}, Weekdays...)

var dayNames = [...]string{"daily", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (d Day) String() string {
	if d < Daily || d > Sunday {
		return fmt.Sprintf("day(%d)", int(d))
	}
	return dayNames[d]
}

// Label is the display name.
func (d Day) Label() string {
	s := d.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseDay maps a lowercase day name to its Day.
func ParseDay(s string) (Day, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range dayNames {
		if name == s {
			return Day(i), true
		}
	}
	return 0, false
}

// WeekSettings is a store's weekly opening configuration. When
// ApplyDailySetting is set the Daily entry governs every weekday, but the
// weekday entries are kept as they are.
type WeekSettings struct {
	IsOpen            bool       `json:"is_open"`
	ApplyDailySetting bool       `json:"is_apply_daily_setting"`
	Daily             DaySetting `json:"daily_setting"`
	Monday            DaySetting `json:"monday_setting"`
	Tuesday           DaySetting `json:"tuesday_setting"`
	Wednesday         DaySetting `json:"wednesday_setting"`
	Thursday          DaySetting `json:"thursday_setting"`
	Friday            DaySetting `json:"friday_setting"`
	Saturday          DaySetting `json:"saturday_setting"`
	Sunday            DaySetting `json:"sunday_setting"`
}

// DefaultWeekSettings is used when nothing has been saved yet or the fetch
// failed: closed, weekday mode, one default range per day.
func DefaultWeekSettings() WeekSettings {
	var w WeekSettings
	w.Backfill()
	return w
}

// Day returns a pointer to the entry for d; nil for an unknown Day.
func (w *WeekSettings) Day(d Day) *DaySetting {
	switch d {
	case Daily:
		return &w.Daily
	case Monday:
		return &w.Monday
	case Tuesday:
		return &w.Tuesday
	case Wednesday:
		return &w.Wednesday
	case Thursday:
		return &w.Thursday
	case Friday:
		return &w.Friday
	case Saturday:
		return &w.Saturday
	case Sunday:
		return &w.Sunday
	}
	return nil
}

// Effective returns the setting that governs d.
func (w WeekSettings) Effective(d Day) DaySetting {
	if w.ApplyDailySetting {
		return w.Daily
	}
	if ds := w.Day(d); ds != nil {
		return *ds
	}
	return DaySetting{}
}

// AddRange appends DefaultRange to d's list.
func (w *WeekSettings) AddRange(d Day) bool {
	ds := w.Day(d)
	if ds == nil {
		return false
	}
	ds.Ranges = append(ds.Ranges, DefaultRange)
	return true
}

// RemoveRange deletes the range at index. It refuses to empty the list.
func (w *WeekSettings) RemoveRange(d Day, index int) bool {
	ds := w.Day(d)
	if ds == nil || len(ds.Ranges) <= 1 || index < 0 || index >= len(ds.Ranges) {
		return false
	}
	ds.Ranges = append(ds.Ranges[:index:index], ds.Ranges[index+1:]...)
	return true
}

// UpdateRange sets one end of the range at index.
func (w *WeekSettings) UpdateRange(d Day, index int, field RangeField, value LocalTime) bool {
	ds := w.Day(d)
	if ds == nil || index < 0 || index >= len(ds.Ranges) || !value.Valid() {
		return false
	}
	switch field {
	case RangeStart:
		ds.Ranges[index].Start = value
	case RangeEnd:
		ds.Ranges[index].End = value
	default:
		return false
	}
	return true
}

func (w *WeekSettings) SetOpenAllDay(d Day, v bool) bool {
	ds := w.Day(d)
	if ds == nil {
		return false
	}
	ds.OpenAllDay = v
	return true
}

func (w *WeekSettings) SetOffDay(d Day, v bool) bool {
	ds := w.Day(d)
	if ds == nil {
		return false
	}
	ds.OffDay = v
	return true
}

// SetApplyDailySetting switches between uniform and per-weekday mode.
// Weekday entries are not touched.
func (w *WeekSettings) SetApplyDailySetting(v bool) {
	w.ApplyDailySetting = v
}

// Backfill gives every day with no ranges a single DefaultRange.
func (w *WeekSettings) Backfill() {
	for _, d := range AllDays {
		ds := w.Day(d)
		if len(ds.Ranges) == 0 {
			ds.Ranges = []TimeRange{DefaultRange}
		}
	}
}

// Normalize resolves days flagged both open all day and off: off wins.
func (w *WeekSettings) Normalize() {
	for _, d := range AllDays {
		ds := w.Day(d)
		if ds.OffDay && ds.OpenAllDay {
			ds.OpenAllDay = false
		}
	}
}

// Clone returns a deep copy.
func (w WeekSettings) Clone() WeekSettings {
	out := w
	for _, d := range AllDays {
		src := w.Day(d)
		*out.Day(d) = src.clone()
	}
	return out
}
