package colormap

import "math"

// Tick is one legend tick: the scalar value and its normalized position
// along the bar (0 at Min, 1 at Max).
type Tick struct {
	Value float64
	Pos   float64
}

// Ticks computes legend tick positions for a range. A positive interval
// selects manual mode: ticks start at the smallest multiple of the
// interval at or above Min. Interval <= 0 selects auto mode, which picks
// a power-of-ten multiple of 1, 2 or 5 placing between 4 and 8 ticks
// inside the range. A degenerate range produces a single tick at its
// value.
func Ticks(r Range, interval float64) []Tick {
	if r.Degenerate() {
		return []Tick{{Value: r.Min, Pos: 0.5}}
	}

	step := interval
	if step <= 0 {
		step = autoStep(r)
	}

	span := r.Max - r.Min
	lo, hi := tickBounds(r, step)

	var ticks []Tick
	for k := lo; k <= hi; k++ {
		v := float64(k) * step
		ticks = append(ticks, Tick{
			Value: v,
			Pos:   (v - r.Min) / span,
		})
	}
	return ticks
}

// autoStep picks the tick step by counting the multiples each ladder
// candidate actually places inside the range, walking 1/2/5 times
// descending powers of ten until the count reaches the 4 to 8 window.
// The count depends on how the range aligns with the step, so rounding
// span/5 to a nice value cannot guarantee the window.
func autoStep(r Range) float64 {
	span := r.Max - r.Min
	coarse := math.Pow(10, math.Ceil(math.Log10(span)))

	prev := coarse
	for i := 0; i < 16; i++ {
		for _, div := range [...]float64{1, 2, 5} {
			step := coarse / div
			lo, hi := tickBounds(r, step)
			n := hi - lo + 1
			if n >= 4 && n <= 8 {
				return step
			}
			if n > 8 {
				// Counts only grow along the ladder, so no denser
				// candidate lands in the window either. Keep the
				// sparser neighbor.
				return prev
			}
			prev = step
		}
		coarse /= 10
	}
	return prev
}

// tickBounds returns the multiples of step covering the range as an
// inclusive index interval.
func tickBounds(r Range, step float64) (lo, hi int) {
	lo = int(math.Ceil(r.Min/step - 1e-9))
	hi = int(math.Floor(r.Max/step + 1e-9))
	return lo, hi
}
