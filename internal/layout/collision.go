package layout

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"calayout/internal/model"
	"calayout/internal/timeutil"
)

// Stacked is a timed event with its column assignment. Collisions is nil when
// the event rendered at full width.
type Stacked struct {
	Event      model.Event
	Collisions *model.Collisions
}

// compareForStacking orders timed events by start, then primary calendar
// first, then shorter first, then id. An empty calendar id is not treated as
// secondary.
func compareForStacking(primaryCalendarID string) func(a, b model.Event) int {
	secondary := func(ev model.Event) int {
		if ev.CalendarID != "" && ev.CalendarID != primaryCalendarID {
			return 1
		}
		return 0
	}
	return func(a, b model.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(secondary(a), secondary(b)); c != 0 {
			return c
		}
		if c := cmp.Compare(timeutil.Duration(a, false), timeutil.Duration(b, false)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}
}

// ResolveCollisions assigns columns to one day's timed events with a sweep
// over start-sorted events. Intervals are half-open: an event ending at
// 10:00 never collides with one starting at 10:00, including a zero-length
// one. The result lists column 0's events first, then column 1's, and so on.
func ResolveCollisions(events []model.Event, primaryCalendarID string) []Stacked {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, compareForStacking(primaryCalendarID))

	var (
		stack   []*model.Event
		buckets [][]Stacked
	)

	retire := func(idx int) {
		st := Stacked{Event: *stack[idx]}
		if len(stack) > 1 {
			st.Collisions = &model.Collisions{Total: len(stack), Order: idx}
		}
		for len(buckets) <= idx {
			buckets = append(buckets, nil)
		}
		buckets[idx] = append(buckets[idx], st)
		stack[idx] = nil
	}

	for i := range sorted {
		ev := &sorted[i]

		for idx := 0; idx < len(stack); idx++ {
			active := stack[idx]
			if active == nil || active.End.After(ev.Start) {
				continue
			}
			retire(idx)
			if !slices.ContainsFunc(stack, func(e *model.Event) bool { return e != nil }) {
				// Run is over; the next event starts a fresh one.
				stack = stack[:0]
			}
		}

		if free := slices.Index(stack, nil); free >= 0 {
			stack[free] = ev
		} else {
			stack = append(stack, ev)
		}
	}

	for idx := range stack {
		if stack[idx] != nil {
			retire(idx)
		}
	}

	out := make([]Stacked, 0, len(sorted))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

// LayoutTimedEvents resolves collisions and computes positions for one day.
func LayoutTimedEvents(events []model.Event, primaryCalendarID string, dayStart time.Time, opts Options) []model.PartDayLayout {
	stacked := ResolveCollisions(events, primaryCalendarID)
	out := make([]model.PartDayLayout, 0, len(stacked))
	for _, st := range stacked {
		out = append(out, model.PartDayLayout{
			Event:      st.Event,
			Collisions: st.Collisions,
			Position:   ComputePosition(st.Event, st.Collisions, dayStart, opts),
		})
	}
	return out
}
