package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"calayout/internal/model"
)

func TestComputePosition(t *testing.T) {
	dayStart := mustTime("2023-10-01T00:00:00Z")
	ev := timedEvent("test", "", "2023-10-01T09:00:00Z", "2023-10-01T10:00:00Z")

	tests := []struct {
		name       string
		collisions *model.Collisions
		width      float64
		margin     float64
	}{
		{"no collisions", nil, 100, 0},
		{"3 wide first column", &model.Collisions{Total: 3, Order: 0}, 64, 0},
		{"3 wide middle column", &model.Collisions{Total: 3, Order: 1}, 64, 100.0 / 3},
		{"3 wide last column", &model.Collisions{Total: 3, Order: 2}, 100.0 / 3, 200.0 / 3},
		{"4 wide last column", &model.Collisions{Total: 4, Order: 3}, 25, 75},
		{"2 wide last column", &model.Collisions{Total: 2, Order: 1}, 50, 50},
		{"stacked width floor", &model.Collisions{Total: 8, Order: 0}, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := ComputePosition(ev, tt.collisions, dayStart, DefaultOptions())
			assert.Equal(t, 540, pos.Top)
			assert.Equal(t, 60, pos.Height)
			assert.InDelta(t, tt.width, pos.Width, 1e-9)
			assert.InDelta(t, tt.margin, pos.MarginLeft, 1e-9)
		})
	}
}

func TestComputePositionMinimumHeight(t *testing.T) {
	dayStart := mustTime("2023-10-01T00:00:00Z")

	short := timedEvent("short", "", "2023-10-01T09:00:00Z", "2023-10-01T09:15:00Z")
	assert.Equal(t, 30, ComputePosition(short, nil, dayStart, DefaultOptions()).Height)

	opts := DefaultOptions()
	opts.MinEventHeight = 10
	assert.Equal(t, 15, ComputePosition(short, nil, dayStart, opts).Height)
}

func TestComputePositionRelativeToOtherDay(t *testing.T) {
	ev := timedEvent("late", "", "2023-10-01T23:00:00Z", "2023-10-02T01:00:00Z")

	pos := ComputePosition(ev, nil, mustTime("2023-10-02T00:00:00Z"), DefaultOptions())
	assert.Equal(t, -60, pos.Top)
	assert.Equal(t, 120, pos.Height)
}

func TestOptionsNormalize(t *testing.T) {
	var o Options
	o.Normalize()
	assert.Equal(t, DefaultOptions(), o)

	o = Options{MinEventHeight: 15, StackedWidthStep: 10, StackedWidthMin: 25}
	o.Normalize()
	assert.Equal(t, 15, o.MinEventHeight)
	assert.Equal(t, 10.0, o.StackedWidthStep)
	assert.Equal(t, 25.0, o.StackedWidthMin)
}
