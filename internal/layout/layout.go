// Package layout turns a flat list of calendar events into per-day render
// layouts. All-day and midnight-spanning events are bin-packed into banner
// rows; timed events are stacked into columns where they overlap.
//
// Generate is a pure function of its inputs and keeps no state between
// calls, so it is safe to call concurrently over shared read-only events.
package layout

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	appLog "calayout/internal/log"
	"calayout/internal/model"
	"calayout/internal/timeutil"
)

var ErrNilLocation = errors.New("layout: location is nil")

// Request describes the window to lay out.
type Request struct {
	// StartCalendarDate and EndCalendarDate are inclusive YYYY-MM-DD dates
	// in Location.
	StartCalendarDate string
	EndCalendarDate   string

	// PrimaryCalendarID wins column ties between events starting together.
	PrimaryCalendarID string

	Location *time.Location

	// View defaults to 1day.
	View timeutil.ViewType

	// WeekStartOffset is the first weekday, 0 = Sunday.
	WeekStartOffset int

	// Options zero values are replaced by DefaultOptions.
	Options Options
}

// Generate lays out events for every day of every grid window that
// intersects [StartCalendarDate, EndCalendarDate]. Each date of those
// windows is present in the result, with empty slices when nothing happens
// on it.
//
// Events with End before Start are clamped to zero duration; the layouts
// carry the clamped copy. An event with a zero Start or End fails with
// timeutil.ErrInvalidRange.
func Generate(events []model.Event, req Request) (model.Layouts, error) {
	if req.Location == nil {
		return nil, ErrNilLocation
	}
	loc := req.Location

	view := req.View
	if view == "" {
		view = timeutil.View1Day
	}
	opts := req.Options
	opts.Normalize()

	first, err := timeutil.ParseCalendarDate(req.StartCalendarDate, loc)
	if err != nil {
		return nil, fmt.Errorf("layout: start date: %w", err)
	}
	last, err := timeutil.ParseCalendarDate(req.EndCalendarDate, loc)
	if err != nil {
		return nil, fmt.Errorf("layout: end date: %w", err)
	}

	normalized, err := normalizeEvents(events)
	if err != nil {
		return nil, err
	}

	var allDay, timed []model.Event
	for _, ev := range normalized {
		if timeutil.IsAllDayOrSpansMidnight(ev, loc) {
			allDay = append(allDay, ev)
		} else {
			timed = append(timed, ev)
		}
	}
	slices.SortStableFunc(allDay, compareAllDay(loc))
	slices.SortStableFunc(timed, compareTimed)

	// Month view renders everything as banners.
	gridEvents := allDay
	if view == timeutil.ViewMonth {
		gridEvents = append(slices.Clip(allDay), timed...)
	}

	w := window{
		loc:         loc,
		view:        view,
		weekOffset:  req.WeekStartOffset,
		primaryID:   req.PrimaryCalendarID,
		opts:        opts,
		gridEvents:  gridEvents,
		timedEvents: timed,
	}

	result := make(model.Layouts)
	seen := make(map[string]struct{})
	for day := first; !day.After(last); day = timeutil.AddDays(day, 1) {
		dr := timeutil.ComputeCalendarDateRange(day, loc, view, req.WeekStartOffset)
		key := dr.Basis.Format(timeutil.CalendarDateLayout)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if err := w.layout(dr, result); err != nil {
			return nil, err
		}
	}

	appLog.Debug("layout generated",
		"start", req.StartCalendarDate,
		"end", req.EndCalendarDate,
		"view", view,
		"windows", len(seen),
		"days", len(result),
		"all_day_events", len(allDay),
		"timed_events", len(timed),
	)
	return result, nil
}

func normalizeEvents(events []model.Event) ([]model.Event, error) {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.IsZero() || ev.End.IsZero() {
			return nil, fmt.Errorf("layout: event %q: %w", ev.ID, timeutil.ErrInvalidRange)
		}
		if ev.End.Before(ev.Start) {
			appLog.Debug("layout: clamping negative duration", "id", ev.ID, "start", ev.Start, "end", ev.End)
			ev.End = ev.Start
		}
		out = append(out, ev)
	}
	return out, nil
}

// compareAllDay orders banners by start, then longest first, then id.
func compareAllDay(loc *time.Location) func(a, b model.Event) int {
	return func(a, b model.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(timeutil.DurationInDays(b, loc), timeutil.DurationInDays(a, loc)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}
}

// compareTimed orders timed events by start, then shortest first, then id.
func compareTimed(a, b model.Event) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(timeutil.Duration(a, false), timeutil.Duration(b, false)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// window carries the per-call inputs shared by every grid window.
type window struct {
	loc        *time.Location
	view       timeutil.ViewType
	weekOffset int
	primaryID  string
	opts       Options

	gridEvents  []model.Event
	timedEvents []model.Event
}

func (w window) layout(dr timeutil.DateRange, result model.Layouts) error {
	weekStart := timeutil.StartOfUserWeek(w.weekOffset, dr.Basis, w.loc)
	grid := NewGrid(GridConfig{
		VisibleX:           dr.DayIndexes,
		WeekBreaks:         w.view == timeutil.ViewMonth,
		StartOfWeekXOffset: timeutil.DayDiff(dr.Basis, weekStart),
	})
	for i := range w.gridEvents {
		ev := &w.gridEvents[i]
		x := timeutil.DayDiff(timeutil.StartOfDay(ev.Start, w.loc), dr.Basis)
		grid.FindFitAndInsert(x, timeutil.DurationInDays(*ev, w.loc), ev)
	}
	height := grid.Height()

	for i, date := range dr.CalendarDates {
		x := dr.DayIndexes[i]
		dayStart := dr.Days[i]

		allDay := make([]model.AllDayLayout, 0)
		for y := 0; y < height; y++ {
			v, ok := grid.ViewAt(x, y)
			if !ok {
				continue
			}
			allDay = append(allDay, model.AllDayLayout{
				Event:             *v.Event,
				RowIndex:          y,
				VisibleWidthDays:  v.VisibleWidthDays,
				Extend:            v.Extend,
				IsPrimaryRendered: v.IsPrimaryRendered,
			})
		}

		partDay := make([]model.PartDayLayout, 0)
		if w.view != timeutil.ViewMonth {
			todays, err := w.timedOn(dayStart)
			if err != nil {
				return err
			}
			partDay = LayoutTimedEvents(todays, w.primaryID, dayStart, w.opts)
		}

		result[date] = model.DayLayout{
			AllDayEventsLayout:  allDay,
			PartDayEventsLayout: partDay,
		}
	}
	return nil
}

// timedOn returns the timed events intersecting [dayStart, next midnight).
func (w window) timedOn(dayStart time.Time) ([]model.Event, error) {
	day := timeutil.Range{Start: dayStart, End: timeutil.AddDays(dayStart, 1)}

	var out []model.Event
	for _, ev := range w.timedEvents {
		ok, err := timeutil.DateRangeIntersect(timeutil.Range{Start: ev.Start, End: ev.End}, day)
		if err != nil {
			return nil, fmt.Errorf("layout: event %q: %w", ev.ID, err)
		}
		if ok {
			out = append(out, ev)
		}
	}
	return out, nil
}
