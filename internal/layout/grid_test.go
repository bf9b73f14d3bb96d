package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calayout/internal/model"
)

func TestGridFindFit(t *testing.T) {
	g := NewGrid(GridConfig{VisibleX: []int{0, 1, 2, 3, 4, 5, 6}})
	a, b, c := &model.Event{ID: "a"}, &model.Event{ID: "b"}, &model.Event{ID: "c"}

	assert.Equal(t, 0, g.FindFitAndInsert(0, 3, a))
	assert.Equal(t, 1, g.FindFitAndInsert(2, 2, b))
	// Day 3 row 0 is still free.
	assert.Equal(t, 0, g.FindFitAndInsert(3, 1, c))

	assert.False(t, g.Fit(1, 0, 1))
	assert.True(t, g.Fit(4, 0, 3))
	assert.Equal(t, 2, g.Height())
}

func TestGridViewAtWithinWindow(t *testing.T) {
	g := NewGrid(GridConfig{VisibleX: []int{0, 1, 2, 3, 4, 5, 6}})
	ev := &model.Event{ID: "trip"}
	g.FindFitAndInsert(1, 3, ev)

	v, ok := g.ViewAt(1, 0)
	require.True(t, ok)
	assert.Same(t, ev, v.Event)
	assert.Equal(t, 3, v.VisibleWidthDays)
	assert.True(t, v.IsPrimaryRendered)
	assert.Equal(t, model.ExtendNone, v.Extend)

	v, ok = g.ViewAt(2, 0)
	require.True(t, ok)
	assert.False(t, v.IsPrimaryRendered)
	assert.Equal(t, 2, v.VisibleWidthDays)
	assert.Equal(t, model.ExtendPast, v.Extend)

	_, ok = g.ViewAt(0, 0)
	assert.False(t, ok)
}

func TestGridViewAtSingleVisibleDay(t *testing.T) {
	tests := []struct {
		name    string
		rootX   int
		want    model.Extend
		primary bool
	}{
		{"starts here", 0, model.ExtendFuture, true},
		{"started yesterday", -1, model.ExtendBoth, true},
		{"ends here", -2, model.ExtendPast, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(GridConfig{VisibleX: []int{0}})
			g.FindFitAndInsert(tt.rootX, 3, &model.Event{ID: "x"})

			v, ok := g.ViewAt(0, 0)
			require.True(t, ok)
			assert.Equal(t, tt.want, v.Extend)
			assert.Equal(t, 1, v.VisibleWidthDays)
			assert.Equal(t, tt.primary, v.IsPrimaryRendered)
		})
	}
}

func TestGridWeekBreaks(t *testing.T) {
	visible := make([]int, 14)
	for i := range visible {
		visible[i] = i
	}
	g := NewGrid(GridConfig{VisibleX: visible, WeekBreaks: true})
	ev := &model.Event{ID: "conference"}
	g.FindFitAndInsert(5, 4, ev) // days 5..8 cross the week boundary at 7

	v, ok := g.ViewAt(5, 0)
	require.True(t, ok)
	assert.Equal(t, 2, v.VisibleWidthDays)
	assert.Equal(t, model.ExtendFuture, v.Extend)

	v, ok = g.ViewAt(7, 0)
	require.True(t, ok)
	assert.True(t, v.IsPrimaryRendered, "a new week starts a new segment")
	assert.Equal(t, 2, v.VisibleWidthDays)
	assert.Equal(t, model.ExtendPast, v.Extend)

	v, ok = g.ViewAt(8, 0)
	require.True(t, ok)
	assert.False(t, v.IsPrimaryRendered)
}

func TestGridWeekBreaksHonourOffset(t *testing.T) {
	g := NewGrid(GridConfig{VisibleX: []int{0, 1, 2, 3, 4, 5, 6}, WeekBreaks: true, StartOfWeekXOffset: 3})
	g.FindFitAndInsert(2, 3, &model.Event{ID: "x"})

	// With index 0 three days into the week, the week turns over at x=4.
	v, ok := g.ViewAt(2, 0)
	require.True(t, ok)
	assert.Equal(t, 2, v.VisibleWidthDays)

	v, ok = g.ViewAt(4, 0)
	require.True(t, ok)
	assert.True(t, v.IsPrimaryRendered)
}

func TestGridDistinctEventsSameID(t *testing.T) {
	g := NewGrid(GridConfig{VisibleX: []int{0, 1}})
	g.FindFitAndInsert(0, 1, &model.Event{ID: "dup"})
	g.FindFitAndInsert(1, 1, &model.Event{ID: "dup"})

	v, ok := g.ViewAt(1, 0)
	require.True(t, ok)
	assert.True(t, v.IsPrimaryRendered)
	assert.Equal(t, model.ExtendNone, v.Extend)

	v, ok = g.ViewAt(0, 0)
	require.True(t, ok)
	assert.Equal(t, 1, v.VisibleWidthDays)
}
