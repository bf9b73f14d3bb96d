package layout

import (
	"math"
	"time"

	"calayout/internal/model"
)

// ComputePosition converts a timed event and its collision info into
// geometry relative to dayStart. Top can be negative or exceed a day for
// events that do not start on dayStart's date; the renderer clips.
func ComputePosition(ev model.Event, collisions *model.Collisions, dayStart time.Time, opts Options) model.Position {
	durationMinutes := int(ev.End.Sub(ev.Start) / time.Minute)

	pos := model.Position{
		Top:    int(ev.Start.Sub(dayStart) / time.Minute),
		Height: max(opts.MinEventHeight, durationMinutes),
		Width:  100,
	}

	if collisions != nil && collisions.Total > 0 {
		total := float64(collisions.Total)
		pos.MarginLeft = (100 / total) * float64(collisions.Order)
		if collisions.Order+1 < collisions.Total {
			// Overlaps the column to its right.
			pos.Width = math.Max(100-opts.StackedWidthStep*total, opts.StackedWidthMin)
		} else {
			pos.Width = 100 / total
		}
	}

	return pos
}
