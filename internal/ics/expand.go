package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calayout/internal/log"
	"calayout/internal/model"
	"calayout/internal/timeutil"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone all-day dates are pinned to. nil means
	// time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the instances that are produced.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means 5000.
	MaxOccurrencesPerEvent int
}

// ExpandResult is the flat event list handed to the layout engine.
type ExpandResult struct {
	Events []model.Event
	// TruncatedEvents lists UIDs that hit MaxOccurrencesPerEvent.
	TruncatedEvents []string
}

// ExpandEvents turns parsed VEVENTs into concrete layout events inside
// [RangeStart, RangeEnd]. It applies RRULE, EXDATE and RECURRENCE-ID
// overrides. Event ids are "UID@instant" so every instance is distinct.
func ExpandEvents(parsed []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are matched per UID; a UID is only unique within its source.
	type key struct{ source, uid string }
	base := make(map[key][]ParsedEvent)
	overrides := make(map[key][]ParsedEvent)
	var order []key

	for _, ev := range parsed {
		k := key{ev.Source.ID, ev.UID}
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, seen := base[k]; !seen {
			order = append(order, k)
		}
		base[k] = append(base[k], ev)
	}

	for _, k := range order {
		truncated := false
		for _, ev := range base[k] {
			events, hitCap := expandOne(ev, overrides[k], cfg)
			truncated = truncated || hitCap
			result.Events = append(result.Events, events...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Warn("ics expand truncated", "uid", k.uid, "source", k.source, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	return result, nil
}

func expandOne(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	if ev.RawRRule == "" {
		return expandSingle(ev, overrides, cfg), false
	}
	return expandRecurring(ev, overrides, cfg)
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	inst := ev
	if o, ok := findOverride(overrides, ev.Start); ok {
		inst = o
	}

	window := timeutil.Range{Start: cfg.RangeStart, End: cfg.RangeEnd}
	ok, err := timeutil.DateRangeIntersect(timeutil.Range{Start: inst.Start, End: inst.End}, window)
	if err != nil {
		appLog.Error("ics expand: invalid event range", err, "uid", ev.UID)
		return nil
	}
	if !ok {
		return nil
	}
	return []model.Event{toEvent(inst, ev.Start, inst.Start, inst.End, cfg.DisplayLocation)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Pull the window start back by the event length so instances already in
	// progress at RangeStart are kept.
	length := ev.End.Sub(ev.Start)
	from := cfg.RangeStart.Add(-length).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	days := 0
	if ev.AllDay {
		days = max(timeutil.DayDiff(ev.End, ev.Start), 1)
	}

	out := make([]model.Event, 0, len(starts))
	for _, start := range starts {
		var end time.Time
		if ev.AllDay {
			end = time.Date(start.Year(), start.Month(), start.Day()+days, 0, 0, 0, 0, start.Location())
		} else {
			end = start.Add(length)
		}

		inst, instStart, instEnd := ev, start, end
		if o, ok := findOverride(overrides, start); ok {
			inst, instStart, instEnd = o, o.Start, o.End
		}
		out = append(out, toEvent(inst, start, instStart, instEnd, cfg.DisplayLocation))
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

// toEvent builds a layout event. recurrenceStart identifies the instance;
// all-day dates keep their calendar date in displayLoc instead of shifting
// with the UTC offset. The exclusive DTEND of an all-day event becomes the
// midnight of its last covered day, the inclusive form the layout engine
// counts columns from.
func toEvent(ev ParsedEvent, recurrenceStart, start, end time.Time, displayLoc *time.Location) model.Event {
	if ev.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc)
		end = time.Date(end.Year(), end.Month(), end.Day()-1, 0, 0, 0, 0, displayLoc)
		if end.Before(start) {
			end = start
		}
	} else {
		start = start.In(displayLoc)
		end = end.In(displayLoc)
	}

	return model.Event{
		ID:         ev.UID + "@" + recurrenceStart.UTC().Format(time.RFC3339),
		CalendarID: ev.Source.ID,
		Title:      ev.Summary,
		Start:      start,
		End:        end,
		AllDay:     ev.AllDay,
	}
}
