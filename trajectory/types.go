// Package trajectory holds tracked object time series and derives the
// quantities rendering needs from them: instantaneous velocities,
// display-mode sample windows and fitted ellipse axes.
package trajectory

import (
	"fmt"
	"math"
	"sort"
)

// ShapeDescriptor carries the second-moment shape of an object at one
// sample: half-axis lengths in micrometers and the ellipse angle in
// degrees, matching OpenCV's fitEllipse convention.
type ShapeDescriptor struct {
	MajorHalf float64
	MinorHalf float64
	AngleDeg  float64
}

// Sample is one observation of a tracked object. Time is seconds, X
// and Y are micrometers.
type Sample struct {
	Time  float64
	X     float64
	Y     float64
	Shape *ShapeDescriptor
}

// TrackedObject is one object's identity and its samples in strictly
// increasing time order.
type TrackedObject struct {
	ID         int
	OriginalID int
	Samples    []Sample
}

// FirstTime returns the time of the object's first sample.
func (o *TrackedObject) FirstTime() float64 {
	if len(o.Samples) == 0 {
		return math.Inf(1)
	}
	return o.Samples[0].Time
}

// LastTime returns the time of the object's last sample.
func (o *TrackedObject) LastTime() float64 {
	if len(o.Samples) == 0 {
		return math.Inf(-1)
	}
	return o.Samples[len(o.Samples)-1].Time
}

// Appeared reports whether the object has at least one sample at or
// before t. Objects that have not appeared render nothing.
func (o *TrackedObject) Appeared(t float64) bool {
	return len(o.Samples) > 0 && o.Samples[0].Time <= t
}

// SampleAtOrBefore returns the index of the last sample with time <= t,
// or -1 when no such sample exists.
func (o *TrackedObject) SampleAtOrBefore(t float64) int {
	i := sort.Search(len(o.Samples), func(i int) bool {
		return o.Samples[i].Time > t
	})
	return i - 1
}

// NearestSample returns the index of the sample closest in time to t.
// Ties prefer the earlier sample.
func (o *TrackedObject) NearestSample(t float64) int {
	if len(o.Samples) == 0 {
		return -1
	}
	i := o.SampleAtOrBefore(t)
	if i < 0 {
		return 0
	}
	if i+1 < len(o.Samples) {
		if o.Samples[i+1].Time-t < t-o.Samples[i].Time {
			return i + 1
		}
	}
	return i
}

// validate checks the strict time ordering invariant.
func (o *TrackedObject) validate() error {
	for i := 1; i < len(o.Samples); i++ {
		if o.Samples[i].Time == o.Samples[i-1].Time {
			return fmt.Errorf("object %d: duplicate sample time %g", o.ID, o.Samples[i].Time)
		}
		if o.Samples[i].Time < o.Samples[i-1].Time {
			return fmt.Errorf("object %d: sample times not increasing at index %d", o.ID, i)
		}
	}
	return nil
}

// Dataset is the full set of tracked objects for a loaded sequence.
// The whole dataset must be present before rendering: the delay-after
// display mode and the automatic velocity range both read future
// samples.
type Dataset struct {
	objects []*TrackedObject
	byID    map[int]*TrackedObject

	velMin      float64
	velMax      float64
	rangeCached bool
	hasVelocity bool
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{byID: make(map[int]*TrackedObject)}
}

// Add inserts an object after validating its sample ordering. Adding
// invalidates the cached velocity range.
func (d *Dataset) Add(obj *TrackedObject) error {
	if err := obj.validate(); err != nil {
		return err
	}
	if _, exists := d.byID[obj.ID]; exists {
		return fmt.Errorf("object %d already present", obj.ID)
	}
	d.objects = append(d.objects, obj)
	d.byID[obj.ID] = obj
	d.rangeCached = false
	return nil
}

// Objects returns all objects in insertion order.
func (d *Dataset) Objects() []*TrackedObject {
	return d.objects
}

// Object looks up one object by ID.
func (d *Dataset) Object(id int) *TrackedObject {
	return d.byID[id]
}

// IDs returns all object IDs in insertion order.
func (d *Dataset) IDs() []int {
	ids := make([]int, len(d.objects))
	for i, o := range d.objects {
		ids[i] = o.ID
	}
	return ids
}

// TimeSpan returns the earliest and latest sample time in the dataset.
func (d *Dataset) TimeSpan() (float64, float64) {
	first := math.Inf(1)
	last := math.Inf(-1)
	for _, o := range d.objects {
		if o.FirstTime() < first {
			first = o.FirstTime()
		}
		if o.LastTime() > last {
			last = o.LastTime()
		}
	}
	return first, last
}

// VelocityRange returns the minimum and maximum instantaneous velocity
// across all objects and samples. The scan runs once per load and is
// cached; a dataset without any velocity falls back to (0, 100) so the
// legend still has a usable range.
func (d *Dataset) VelocityRange() (float64, float64) {
	if d.rangeCached {
		if !d.hasVelocity {
			return 0, 100
		}
		return d.velMin, d.velMax
	}

	d.velMin = math.Inf(1)
	d.velMax = math.Inf(-1)
	d.hasVelocity = false
	for _, o := range d.objects {
		for i := 1; i < len(o.Samples); i++ {
			v := velocityBetween(o.Samples[i-1], o.Samples[i])
			if v < d.velMin {
				d.velMin = v
			}
			if v > d.velMax {
				d.velMax = v
			}
			d.hasVelocity = true
		}
	}
	d.rangeCached = true

	if !d.hasVelocity {
		return 0, 100
	}
	return d.velMin, d.velMax
}

// velocityBetween is the Euclidean displacement over elapsed time
// between two consecutive samples, in micrometers per second.
func velocityBetween(a, b Sample) float64 {
	dt := b.Time - a.Time
	if dt <= 0 {
		return 0
	}
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Hypot(dx, dy) / dt
}
