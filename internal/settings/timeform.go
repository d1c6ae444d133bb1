package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/store-dashboard/internal/schedule"
)

// timeForm mirrors the inputs of the opening-hours tab. Only days that were
// rendered carry Present, so hidden days keep their stored values.
type timeForm struct {
	Present    bool    `schema:"present"`
	IsOpen     bool    `schema:"is_open"`
	ApplyDaily bool    `schema:"apply_daily"`
	Daily      dayForm `schema:"daily"`
	Monday     dayForm `schema:"monday"`
	Tuesday    dayForm `schema:"tuesday"`
	Wednesday  dayForm `schema:"wednesday"`
	Thursday   dayForm `schema:"thursday"`
	Friday     dayForm `schema:"friday"`
	Saturday   dayForm `schema:"saturday"`
	Sunday     dayForm `schema:"sunday"`
}

type dayForm struct {
	Present    bool        `schema:"present"`
	OpenAllDay bool        `schema:"open_all_day"`
	OffDay     bool        `schema:"off_day"`
	Ranges     []rangeForm `schema:"ranges"`
}

type rangeForm struct {
	Start string `schema:"start"`
	End   string `schema:"end"`
}

func (f *timeForm) day(d schedule.Day) *dayForm {
	switch d {
	case schedule.Daily:
		return &f.Daily
	case schedule.Monday:
		return &f.Monday
	case schedule.Tuesday:
		return &f.Tuesday
	case schedule.Wednesday:
		return &f.Wednesday
	case schedule.Thursday:
		return &f.Thursday
	case schedule.Friday:
		return &f.Friday
	case schedule.Saturday:
		return &f.Saturday
	case schedule.Sunday:
		return &f.Sunday
	}
	return nil
}

// apply copies submitted values onto w through the editor operations. Times
// that do not parse are reported and leave the range unchanged.
func (f *timeForm) apply(w *schedule.WeekSettings) []string {
	var problems []string
	if f.Present {
		w.IsOpen = f.IsOpen
		w.SetApplyDailySetting(f.ApplyDaily)
	}
	for _, d := range schedule.AllDays {
		df := f.day(d)
		if !df.Present {
			continue
		}
		w.SetOpenAllDay(d, df.OpenAllDay)
		w.SetOffDay(d, df.OffDay)
		existing := len(w.Day(d).Ranges)
		for i, rf := range df.Ranges {
			if i >= existing {
				break
			}
			for _, field := range []struct {
				raw   string
				field schedule.RangeField
				name  string
			}{
				{rf.Start, schedule.RangeStart, "start"},
				{rf.End, schedule.RangeEnd, "end"},
			} {
				if strings.TrimSpace(field.raw) == "" {
					continue
				}
				v, err := schedule.ParseLocalTime(field.raw)
				if err != nil {
					problems = append(problems, fmt.Sprintf("%s range %d: invalid %s time %q", d.Label(), i+1, field.name, field.raw))
					continue
				}
				w.UpdateRange(d, i, field.field, v)
			}
		}
	}
	return problems
}

// timeOp is the button pressed on the opening-hours tab.
type timeOp struct {
	kind  string // add, remove, save, reset or refresh
	day   schedule.Day
	index int
}

func parseTimeOp(raw string) (timeOp, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	switch parts[0] {
	case "", "refresh":
		return timeOp{kind: "refresh"}, nil
	case "save", "reset":
		return timeOp{kind: parts[0]}, nil
	case "add":
		if len(parts) != 2 {
			break
		}
		d, ok := schedule.ParseDay(parts[1])
		if !ok {
			break
		}
		return timeOp{kind: "add", day: d}, nil
	case "remove":
		if len(parts) != 3 {
			break
		}
		d, ok := schedule.ParseDay(parts[1])
		if !ok {
			break
		}
		i, err := strconv.Atoi(parts[2])
		if err != nil {
			break
		}
		return timeOp{kind: "remove", day: d, index: i}, nil
	}
	return timeOp{}, fmt.Errorf("settings: unknown op %q", raw)
}

// DayView is one day block of the opening-hours tab.
type DayView struct {
	Key        string
	Label      string
	OpenAllDay bool
	OffDay     bool
	Editable   bool
	CanRemove  bool
	Ranges     []RangeView
}

type RangeView struct {
	Index int
	Start string
	End   string
}

// TimeView is the opening-hours tab. Days lists Daily alone in uniform mode
// and the seven weekdays otherwise.
type TimeView struct {
	IsOpen     bool
	ApplyDaily bool
	Days       []DayView
	Week       []WeekLine
}

// WeekLine is one row of the read-only week overview: the hours a weekday
// actually gets once the uniform setting is taken into account.
type WeekLine struct {
	Label string
	Hours string
}

func weekLines(w schedule.WeekSettings) []WeekLine {
	lines := make([]WeekLine, 0, len(schedule.Weekdays))
	for _, d := range schedule.Weekdays {
		ds := w.Effective(d)
		hours := "Closed"
		switch {
		case !w.IsOpen || ds.OffDay:
		case ds.OpenAllDay:
			hours = "Open all day"
		case len(ds.Ranges) > 0:
			parts := make([]string, len(ds.Ranges))
			for i, r := range ds.Ranges {
				parts[i] = r.Start.String() + "-" + r.End.String()
			}
			hours = strings.Join(parts, ", ")
		}
		lines = append(lines, WeekLine{Label: d.Label(), Hours: hours})
	}
	return lines
}

func newTimeView(w schedule.WeekSettings) *TimeView {
	v := &TimeView{IsOpen: w.IsOpen, ApplyDaily: w.ApplyDailySetting, Week: weekLines(w)}
	days := schedule.Weekdays
	if w.ApplyDailySetting {
		days = []schedule.Day{schedule.Daily}
	}
	for _, d := range days {
		ds := *w.Day(d)
		dv := DayView{
			Key:        d.String(),
			Label:      d.Label(),
			OpenAllDay: ds.OpenAllDay,
			OffDay:     ds.OffDay,
			Editable:   ds.Editable(),
			CanRemove:  len(ds.Ranges) > 1,
		}
		for i, r := range ds.Ranges {
			dv.Ranges = append(dv.Ranges, RangeView{Index: i, Start: r.Start.String(), End: r.End.String()})
		}
		v.Days = append(v.Days, dv)
	}
	return v
}
