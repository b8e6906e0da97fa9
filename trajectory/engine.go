package trajectory

import (
	"fmt"
	"math"
	"sort"
)

// DisplayMode selects which part of a trajectory is visible relative to
// the current time.
type DisplayMode int

const (
	// ModeFull shows the entire history up to the current time.
	ModeFull DisplayMode = iota
	// ModeStartToCurrent is an alias of ModeFull kept for UI clarity.
	ModeStartToCurrent
	// ModeDelayBefore shows a trailing window ending at the current time.
	ModeDelayBefore
	// ModeDelayAfter shows a leading window starting at the current
	// time. It requires the full dataset to be loaded up front.
	ModeDelayAfter
)

// ParseMode converts a configuration mode string.
func ParseMode(s string) (DisplayMode, error) {
	switch s {
	case "full":
		return ModeFull, nil
	case "start_to_current":
		return ModeStartToCurrent, nil
	case "delay_before":
		return ModeDelayBefore, nil
	case "delay_after":
		return ModeDelayAfter, nil
	}
	return ModeFull, fmt.Errorf("unknown trajectory mode %q", s)
}

func (m DisplayMode) String() string {
	switch m {
	case ModeStartToCurrent:
		return "start_to_current"
	case ModeDelayBefore:
		return "delay_before"
	case ModeDelayAfter:
		return "delay_after"
	default:
		return "full"
	}
}

// EllipseFit is a fitted ellipse at one frame: the center and the two
// half-axis vectors, all in micrometers.
type EllipseFit struct {
	CX, CY           float64
	MajorDX, MajorDY float64
	MinorDX, MinorDY float64
}

// Engine derives per-frame rendering quantities from a dataset.
type Engine struct {
	ds *Dataset
}

// NewEngine wraps a fully loaded dataset.
func NewEngine(ds *Dataset) *Engine {
	return &Engine{ds: ds}
}

// Dataset returns the wrapped dataset.
func (e *Engine) Dataset() *Dataset {
	return e.ds
}

// VisibleWindow returns the samples of obj visible at time now under
// the given mode, together with the index of the first returned sample
// within obj.Samples (for velocity lookups). An object that has not
// appeared by now returns an empty window in every mode. Missing data
// is never an error: an object without samples for the current frame
// simply goes undrawn.
func (e *Engine) VisibleWindow(obj *TrackedObject, now float64, mode DisplayMode, delayWindow float64) (int, []Sample) {
	if !obj.Appeared(now) {
		return 0, nil
	}

	var lo, hi float64
	switch mode {
	case ModeFull, ModeStartToCurrent:
		lo = math.Inf(-1)
		hi = now
	case ModeDelayBefore:
		lo = now - delayWindow
		hi = now
	case ModeDelayAfter:
		lo = now
		hi = now + delayWindow
	default:
		lo = math.Inf(-1)
		hi = now
	}

	start := sort.Search(len(obj.Samples), func(i int) bool {
		return obj.Samples[i].Time >= lo
	})
	end := sort.Search(len(obj.Samples), func(i int) bool {
		return obj.Samples[i].Time > hi
	})
	if start >= end {
		return 0, nil
	}
	return start, obj.Samples[start:end]
}

// VelocityAt returns the instantaneous velocity at sample index i: the
// displacement from the previous sample over elapsed time. The first
// sample of an object has velocity zero.
func (e *Engine) VelocityAt(obj *TrackedObject, i int) float64 {
	if i <= 0 || i >= len(obj.Samples) {
		return 0
	}
	return velocityBetween(obj.Samples[i-1], obj.Samples[i])
}

// CurrentPosition returns the object's position at the last sample at
// or before now, and whether the object is visible at all. As with
// VisibleWindow, an object with no usable sample reports invisible
// rather than an error.
func (e *Engine) CurrentPosition(obj *TrackedObject, now float64) (Sample, bool) {
	i := obj.SampleAtOrBefore(now)
	if i < 0 {
		return Sample{}, false
	}
	return obj.Samples[i], true
}

// FitEllipse returns the ellipse axes for the sample nearest to now, or
// nil when that sample carries no shape descriptor. Axis endpoint
// conventions follow OpenCV's fitEllipse angle.
func (e *Engine) FitEllipse(obj *TrackedObject, now float64) *EllipseFit {
	i := obj.NearestSample(now)
	if i < 0 {
		return nil
	}
	s := obj.Samples[i]
	if s.Shape == nil {
		return nil
	}

	a := s.Shape.AngleDeg * math.Pi / 180
	sin, cos := math.Sin(a), math.Cos(a)

	return &EllipseFit{
		CX:      s.X,
		CY:      s.Y,
		MajorDX: s.Shape.MajorHalf * sin,
		MajorDY: -s.Shape.MajorHalf * cos,
		MinorDX: s.Shape.MinorHalf * cos,
		MinorDY: s.Shape.MinorHalf * sin,
	}
}
