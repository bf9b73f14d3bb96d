package layout

const (
	defaultMinEventHeight   = 30
	defaultStackedWidthStep = 12
	defaultStackedWidthMin  = 20
)

// Options are the geometry tunables for timed events.
type Options struct {
	// MinEventHeight is the minimum rendered height in minutes, so very
	// short events stay tappable.
	MinEventHeight int `yaml:"min_event_height" json:"min_event_height" toml:"min_event_height"`

	// StackedWidthStep is subtracted from 100% once per colliding event for
	// every column except the rightmost one.
	StackedWidthStep float64 `yaml:"stacked_width_step" json:"stacked_width_step" toml:"stacked_width_step"`

	// StackedWidthMin is the floor for a stacked column's width in percent.
	StackedWidthMin float64 `yaml:"stacked_width_min" json:"stacked_width_min" toml:"stacked_width_min"`
}

// DefaultOptions returns the stock geometry.
func DefaultOptions() Options {
	return Options{
		MinEventHeight:   defaultMinEventHeight,
		StackedWidthStep: defaultStackedWidthStep,
		StackedWidthMin:  defaultStackedWidthMin,
	}
}

// Normalize replaces non-positive values with defaults.
func (o *Options) Normalize() {
	if o.MinEventHeight <= 0 {
		o.MinEventHeight = defaultMinEventHeight
	}
	if o.StackedWidthStep <= 0 {
		o.StackedWidthStep = defaultStackedWidthStep
	}
	if o.StackedWidthMin <= 0 {
		o.StackedWidthMin = defaultStackedWidthMin
	}
}
