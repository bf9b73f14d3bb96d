package layout

import (
	"calayout/internal/model"
)

// cell addresses the banner grid: x is the day index relative to the
// window's basis date (may be negative), y is the row.
type cell struct {
	x, y int
}

// slot is what a filled cell holds. rootX is the day index where the event's
// run starts, which may lie outside the visible window.
type slot struct {
	event *model.Event
	rootX int
}

// GridView is what a renderer needs to draw one cell of an all-day event.
type GridView struct {
	Event             *model.Event
	VisibleWidthDays  int
	IsPrimaryRendered bool
	Extend            model.Extend
}

// GridConfig describes the visible part of the grid.
type GridConfig struct {
	// VisibleX is the set of day indexes that are on screen.
	VisibleX []int
	// WeekBreaks splits banner segments at week boundaries (month view).
	WeekBreaks bool
	// StartOfWeekXOffset is the distance in days from the start of the
	// user's week to index 0.
	StartOfWeekXOffset int
}

// Grid bin-packs day-spanning events into rows with greedy first fit.
// Event identity is pointer identity: two distinct events with the same ID
// never merge into one segment.
type Grid struct {
	cells      map[cell]slot
	visibleX   map[int]struct{}
	weekBreaks bool
	weekOffset int
	height     int
}

// NewGrid returns an empty grid.
func NewGrid(cfg GridConfig) *Grid {
	visible := make(map[int]struct{}, len(cfg.VisibleX))
	for _, x := range cfg.VisibleX {
		visible[x] = struct{}{}
	}
	return &Grid{
		cells:      make(map[cell]slot),
		visibleX:   visible,
		weekBreaks: cfg.WeekBreaks,
		weekOffset: cfg.StartOfWeekXOffset,
	}
}

func (g *Grid) at(x, y int) (slot, bool) {
	s, ok := g.cells[cell{x, y}]
	return s, ok
}

func (g *Grid) visible(x int) bool {
	_, ok := g.visibleX[x]
	return ok
}

// Fit reports whether cells [x, x+duration) in row y are all empty.
func (g *Grid) Fit(x, y, duration int) bool {
	for i := 0; i < duration; i++ {
		if _, ok := g.at(x+i, y); ok {
			return false
		}
	}
	return true
}

// FindFit returns the lowest row where an event of the given duration fits
// starting at x.
func (g *Grid) FindFit(x, duration int) int {
	y := 0
	for !g.Fit(x, y, duration) {
		y++
	}
	return y
}

// FindFitAndInsert places ev in the lowest free row and returns that row.
func (g *Grid) FindFitAndInsert(x, duration int, ev *model.Event) int {
	y := g.FindFit(x, duration)
	for i := 0; i < duration; i++ {
		g.cells[cell{x + i, y}] = slot{event: ev, rootX: x}
	}
	if duration > 0 && y+1 > g.height {
		g.height = y + 1
	}
	return y
}

// Height is the number of rows in use across all columns.
func (g *Grid) Height() int {
	return g.height
}

func (g *Grid) week(x int) int {
	// Floor division; x may be negative.
	v := x + g.weekOffset
	if v < 0 {
		return (v - 6) / 7
	}
	return v / 7
}

func (g *Grid) crossesWeek(x int) bool {
	return g.weekBreaks && g.week(x) != g.week(x-1)
}

// ViewAt derives the render view for cell (x, y). ok is false for an empty
// cell.
func (g *Grid) ViewAt(x, y int) (view GridView, ok bool) {
	s, ok := g.at(x, y)
	if !ok {
		return GridView{}, false
	}

	prevSame := false
	if g.visible(x - 1) {
		if prev, ok := g.at(x-1, y); ok && prev.event == s.event {
			prevSame = true
		}
	}
	isPrimary := x == s.rootX || !prevSame || g.crossesWeek(x)

	width := 1
	for {
		nx := x + width
		if !g.visible(nx) || g.crossesWeek(nx) {
			break
		}
		next, ok := g.at(nx, y)
		if !ok || next.event != s.event {
			break
		}
		width++
	}

	wrapStart := x != s.rootX
	wrapEnd := false
	if next, ok := g.at(x+width, y); ok && next.event == s.event {
		wrapEnd = true
	}

	extend := model.ExtendNone
	switch {
	case wrapStart && wrapEnd:
		extend = model.ExtendBoth
	case wrapStart:
		extend = model.ExtendPast
	case wrapEnd:
		extend = model.ExtendFuture
	}

	return GridView{
		Event:             s.event,
		VisibleWidthDays:  width,
		IsPrimaryRendered: isPrimary,
		Extend:            extend,
	}, true
}
