package filter

import (
	"fmt"
	"time"
)

// Relative names a date window resolved against the local clock at call
// time.
type Relative string

const (
	Today    Relative = "today"
	Tomorrow Relative = "tomorrow"
	ThisWeek Relative = "this_week"
	NextWeek Relative = "next_week"
	// Overdue is due strictly before now. It only applies to due dates.
	Overdue Relative = "overdue"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func midnight(now time.Time) time.Time {
	local := now.In(time.Local)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}

// DayWindow is [midnight, next midnight) of the day containing now.
// AddDate keeps DST days at their calendar length.
func DayWindow(now time.Time) Window {
	start := midnight(now)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekWindow is [most recent Monday 00:00, following Monday 00:00). On a
// Monday the window starts that same day.
func WeekWindow(now time.Time) Window {
	today := midnight(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -sinceMonday)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// Resolve returns the window for relative. Overdue has no window.
func (r Relative) Resolve(now time.Time) (Window, error) {
	switch r {
	case Today:
		return DayWindow(now), nil
	case Tomorrow:
		return DayWindow(midnight(now).AddDate(0, 0, 1)), nil
	case ThisWeek:
		return WeekWindow(now), nil
	case NextWeek:
		return WeekWindow(WeekWindow(now).End), nil
	default:
		return Window{}, fmt.Errorf("relative window %q has no fixed bounds", r)
	}
}

func (r Relative) valid(allowOverdue bool) bool {
	switch r {
	case Today, Tomorrow, ThisWeek, NextWeek:
		return true
	case Overdue:
		return allowOverdue
	}
	return false
}
