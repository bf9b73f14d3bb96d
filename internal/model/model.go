package model

import (
	"fmt"
	"time"
)

// Event is a single, already-expanded calendar instance handed to the layout
// engine. Timed events form a half-open interval [Start, End). All-day
// events use an inclusive End: the midnight of the last day they cover.
type Event struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	Title      string `json:"title"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	AllDay bool `json:"isAllDay,omitempty"`
}

// Extend tells whether an all-day banner segment continues before and/or
// after the slice being rendered.
type Extend int

const (
	ExtendNone Extend = iota
	ExtendPast
	ExtendFuture
	ExtendBoth
)

func (e Extend) String() string {
	switch e {
	case ExtendPast:
		return "past"
	case ExtendFuture:
		return "future"
	case ExtendBoth:
		return "both"
	default:
		return "none"
	}
}

func (e Extend) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Extend) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*e = ExtendNone
	case "past":
		*e = ExtendPast
	case "future":
		*e = ExtendFuture
	case "both":
		*e = ExtendBoth
	default:
		return fmt.Errorf("model: unknown extend value %q", string(b))
	}
	return nil
}

// AllDayLayout places an all-day or multi-day event on the banner grid.
type AllDayLayout struct {
	Event             Event  `json:"event"`
	RowIndex          int    `json:"rowIndex"`
	VisibleWidthDays  int    `json:"visibleWidthDays"`
	Extend            Extend `json:"extend"`
	IsPrimaryRendered bool   `json:"isPrimaryRendered"`
}

// Collisions describes a timed event's column within a run of overlapping
// events. Order 0 is the leftmost column.
type Collisions struct {
	Total int `json:"total"`
	Order int `json:"order"`
}

// Position is the geometry of a timed event inside its day column.
// Top and Height are minutes; Width and MarginLeft are percentages.
type Position struct {
	Top        int     `json:"top"`
	Height     int     `json:"height"`
	Width      float64 `json:"width"`
	MarginLeft float64 `json:"marginLeft"`
}

// PartDayLayout is a timed event confined to one calendar day.
type PartDayLayout struct {
	Event      Event       `json:"event"`
	Collisions *Collisions `json:"collisions,omitempty"`
	Position   Position    `json:"position"`
}

// DayLayout is everything rendered for one calendar date.
type DayLayout struct {
	AllDayEventsLayout  []AllDayLayout  `json:"allDayEventsLayout"`
	PartDayEventsLayout []PartDayLayout `json:"partDayEventsLayout"`
}

// Layouts maps a YYYY-MM-DD calendar date to its layout.
type Layouts map[string]DayLayout
