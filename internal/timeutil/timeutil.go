// Package timeutil holds the timezone-aware date arithmetic used by the
// layout engine: classifying events as all-day/spanning, counting the calendar
// days an event touches and computing the visible day grid for a view.
//
// All calendar-day arithmetic goes through time.Date so DST transitions never
// produce 23h or 25h "days".
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"calayout/internal/model"
)

// MaxRangeDays bounds day enumeration for a single event.
const MaxRangeDays = 31

// CalendarDateLayout is the YYYY-MM-DD key format used throughout.
const CalendarDateLayout = "2006-01-02"

// ErrInvalidRange is returned by DateRangeIntersect when a bound is not a
// valid time.
var ErrInvalidRange = errors.New("timeutil: invalid range bound; must pass valid times")

// ViewType is the granularity of the visible calendar grid.
type ViewType string

const (
	ViewMonth    ViewType = "month"
	ViewWeek     ViewType = "week"
	ViewWorkWeek ViewType = "workweek"
	View3Day     ViewType = "3day"
	View1Day     ViewType = "1day"
)

// ParseViewType validates a view name. Empty maps to 1day.
func ParseViewType(s string) (ViewType, error) {
	switch v := ViewType(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return View1Day, nil
	case ViewMonth, ViewWeek, ViewWorkWeek, View3Day, View1Day:
		return v, nil
	default:
		return "", fmt.Errorf("timeutil: unknown view type %q", s)
	}
}

// Range is a half-open [Start, End) interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays moves a local midnight by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

// DayDiff returns the number of calendar days from b to a, using each value's
// own wall-clock date.
func DayDiff(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	// Sub saturates past ~292 years.
	return int((ua.Unix() - ub.Unix()) / 86400)
}

// CalendarDate formats t as YYYY-MM-DD in loc.
func CalendarDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(CalendarDateLayout)
}

// ParseCalendarDate parses a YYYY-MM-DD string as local midnight in loc.
func ParseCalendarDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(CalendarDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse calendar date %q: %w", s, err)
	}
	return t, nil
}

// lastInstant returns the instant whose calendar day is the last day the
// interval touches. An end exactly on local midnight belongs to the previous
// day, so a zero-length event at midnight touches two dates.
func lastInstant(end time.Time, loc *time.Location) time.Time {
	e := end.In(loc)
	if e.Equal(StartOfDay(e, loc)) {
		return e.Add(-time.Nanosecond)
	}
	return e
}

// IsAllDayOrSpansMidnight reports whether ev belongs on the all-day banner
// grid: flagged all-day, or its local start and end fall on different days.
func IsAllDayOrSpansMidnight(ev model.Event, loc *time.Location) bool {
	if ev.AllDay {
		return true
	}
	return CalendarDate(ev.Start, loc) != CalendarDate(lastInstant(ev.End, loc), loc)
}

// DurationInDays is the number of grid columns ev occupies, at most
// MaxRangeDays. All-day events carry an inclusive End: [10T00:00, 12T00:00]
// covers the 10th, 11th and 12th.
func DurationInDays(ev model.Event, loc *time.Location) int {
	if !ev.AllDay {
		return len(DaysInRange(ev.Start, lastInstant(ev.End, loc), loc))
	}

	days := DayDiff(StartOfDay(ev.End, loc), StartOfDay(ev.Start, loc)) + 1
	return min(max(days, 1), MaxRangeDays)
}

// Duration is End-Start. All-day events get an extra 24h unless trueDuration
// is set, which keeps them ordered after timed events of the same length.
func Duration(ev model.Event, trueDuration bool) time.Duration {
	d := ev.End.Sub(ev.Start)
	if ev.AllDay && !trueDuration {
		d += 24 * time.Hour
	}
	return d
}

// DaysInRange lists the calendar dates from start to end inclusive. The list
// never holds more than MaxRangeDays entries.
func DaysInRange(start, end time.Time, loc *time.Location) []string {
	first := StartOfDay(start, loc)
	n := DayDiff(StartOfDay(end, loc), first)
	if n < 0 {
		n = 0
	}
	n = min(n, MaxRangeDays-1)

	days := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		days = append(days, AddDays(first, i).Format(CalendarDateLayout))
	}
	return days
}

// StartOfUserWeek returns local midnight of the first day of the week that
// contains date. offset is the first weekday (0 = Sunday ... 6 = Saturday).
func StartOfUserWeek(offset int, date time.Time, loc *time.Location) time.Time {
	d := StartOfDay(date, loc)
	back := (int(d.Weekday()) - normalizeOffset(offset) + 7) % 7
	return AddDays(d, -back)
}

func normalizeOffset(offset int) int {
	return ((offset % 7) + 7) % 7
}

// DateRange is the x-axis of a visible calendar grid. Day index i is the
// calendar day Basis+i; DayIndexes may skip indexes (workweek).
type DateRange struct {
	Basis         time.Time
	DayIndexes    []int
	Days          []time.Time
	CalendarDates []string

	// Start is the first visible day, End the midnight after the last one.
	Start time.Time
	End   time.Time

	StartCalendarDate string
	EndCalendarDate   string
}

// ComputeCalendarDateRange computes the grid window that contains date for
// the given view type.
func ComputeCalendarDateRange(date time.Time, loc *time.Location, view ViewType, weekStartOffset int) DateRange {
	day := StartOfDay(date, loc)

	var basis time.Time
	var indexes []int

	switch view {
	case ViewMonth:
		som := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		before := (int(som.Weekday()) - normalizeOffset(weekStartOffset) + 7) % 7
		basis = AddDays(som, -before)
		daysInMonth := time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, loc).Day()
		total := before + daysInMonth
		after := (7 - total%7) % 7
		indexes = seq(total + after)
	case ViewWorkWeek:
		basis = StartOfUserWeek(weekStartOffset, day, loc)
		for i := 0; i < 7; i++ {
			switch AddDays(basis, i).Weekday() {
			case time.Saturday, time.Sunday:
			default:
				indexes = append(indexes, i)
			}
		}
	case View3Day:
		basis = day
		indexes = seq(3)
	case View1Day:
		basis = day
		indexes = seq(1)
	default:
		basis = StartOfUserWeek(weekStartOffset, day, loc)
		indexes = seq(7)
	}

	r := DateRange{
		Basis:         basis,
		DayIndexes:    indexes,
		Days:          make([]time.Time, 0, len(indexes)),
		CalendarDates: make([]string, 0, len(indexes)),
	}
	for _, i := range indexes {
		d := AddDays(basis, i)
		r.Days = append(r.Days, d)
		r.CalendarDates = append(r.CalendarDates, d.Format(CalendarDateLayout))
	}
	r.Start = r.Days[0]
	r.End = AddDays(r.Days[len(r.Days)-1], 1)
	r.StartCalendarDate = r.CalendarDates[0]
	r.EndCalendarDate = r.CalendarDates[len(r.CalendarDates)-1]
	return r
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// DateRangeIntersect reports whether two half-open ranges overlap. An empty
// range [t, t) intersects a range that contains t. Inverted ranges never
// intersect.
func DateRangeIntersect(a, b Range) (bool, error) {
	if a.Start.IsZero() || a.End.IsZero() || b.Start.IsZero() || b.End.IsZero() {
		return false, fmt.Errorf("%w: [%v, %v) [%v, %v)", ErrInvalidRange, a.Start, a.End, b.Start, b.End)
	}
	if a.Start.After(a.End) || b.Start.After(b.End) {
		return false, nil
	}
	return isBetween(a.Start, b.Start, b.End) || isBetween(b.Start, a.Start, a.End), nil
}

func isBetween(v, startInclusive, endExclusive time.Time) bool {
	return !v.Before(startInclusive) && v.Before(endExclusive)
}
