package colormap

import (
	"math"
	"testing"
)

func TestGetKnownAndUnknown(t *testing.T) {
	for _, name := range AvailableMaps() {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q): %v", name, err)
		}
	}
	if _, err := Get("cividis"); err == nil {
		t.Error("expected error for unknown colormap")
	}
}

func TestColorForEndpoints(t *testing.T) {
	m, err := Get("viridis")
	if err != nil {
		t.Fatal(err)
	}
	rng := Range{Min: 10, Max: 20}

	lo := m.ColorFor(10, rng)
	hi := m.ColorFor(20, rng)
	if lo == hi {
		t.Fatal("endpoint colors should differ")
	}
	// Out-of-range values clamp to the endpoints.
	if m.ColorFor(-5, rng) != lo {
		t.Error("below-range value did not clamp to the minimum color")
	}
	if m.ColorFor(500, rng) != hi {
		t.Error("above-range value did not clamp to the maximum color")
	}
}

func TestColorForDegenerateRange(t *testing.T) {
	m, err := Get("jet")
	if err != nil {
		t.Fatal(err)
	}
	rng := Range{Min: 5, Max: 5}

	mid := m.ColorFor(5, rng)
	if m.ColorFor(-100, rng) != mid || m.ColorFor(100, rng) != mid {
		t.Error("degenerate range should map every value to the midpoint color")
	}
}

func TestGrayIsMonotonic(t *testing.T) {
	m, err := Get("gray")
	if err != nil {
		t.Fatal(err)
	}
	rng := Range{Min: 0, Max: 1}

	prev := -1
	for i := 0; i <= 100; i++ {
		c := m.ColorFor(float64(i)/100, rng)
		if c.R != c.G || c.G != c.B {
			t.Fatalf("gray sample is not gray: %+v", c)
		}
		if int(c.R) < prev {
			t.Fatalf("gray not monotonic at %d: %d < %d", i, c.R, prev)
		}
		prev = int(c.R)
	}
}

func TestTicksAuto(t *testing.T) {
	ticks := Ticks(Range{Min: 0, Max: 100}, 0)
	if len(ticks) < 4 || len(ticks) > 8 {
		t.Fatalf("auto mode produced %d ticks, want 4-8", len(ticks))
	}
	if ticks[0].Value != 0 || ticks[0].Pos != 0 {
		t.Errorf("first tick = %+v, want value 0 at pos 0", ticks[0])
	}
	last := ticks[len(ticks)-1]
	if last.Value != 100 || math.Abs(last.Pos-1) > 1e-9 {
		t.Errorf("last tick = %+v, want value 100 at pos 1", last)
	}

	// The 4-8 window holds across magnitudes, including spans where
	// span/5 normalizes into [1.5, 3.5) and a rounded step overshoots.
	for _, span := range []float64{0.7, 3, 10.5, 17, 42, 173.6, 999, 12345} {
		n := len(Ticks(Range{Min: 0, Max: span}, 0))
		if n < 4 || n > 8 {
			t.Errorf("span %v: %d ticks, want 4-8", span, n)
		}
	}
}

func TestTicksAutoOffsetRange(t *testing.T) {
	ticks := Ticks(Range{Min: -50.51, Max: 123.15}, 0)
	if len(ticks) < 4 || len(ticks) > 8 {
		t.Fatalf("got %d ticks, want 4-8", len(ticks))
	}
	for _, tk := range ticks {
		if tk.Value < -50.51 || tk.Value > 123.15 {
			t.Errorf("tick %v outside the range", tk.Value)
		}
		if tk.Pos < 0 || tk.Pos > 1 {
			t.Errorf("tick %v has position %v outside [0,1]", tk.Value, tk.Pos)
		}
	}
}

func TestTicksZeroMinimum(t *testing.T) {
	ticks := Ticks(Range{Min: 0, Max: 17}, 0)
	if len(ticks) == 0 {
		t.Fatal("no ticks")
	}
	if ticks[0].Value != 0 || math.Signbit(ticks[0].Value) {
		t.Errorf("first tick = %v, want positive zero", ticks[0].Value)
	}
}

func TestTicksManualInterval(t *testing.T) {
	ticks := Ticks(Range{Min: 5, Max: 97}, 10)
	if len(ticks) == 0 {
		t.Fatal("no ticks")
	}
	if ticks[0].Value != 10 {
		t.Errorf("first tick %v, want 10 (smallest multiple at or above min)", ticks[0].Value)
	}
	last := ticks[len(ticks)-1]
	if last.Value != 90 {
		t.Errorf("last tick %v, want 90", last.Value)
	}
	for _, tk := range ticks {
		if tk.Pos < 0 || tk.Pos > 1 {
			t.Errorf("tick %v has position %v outside [0,1]", tk.Value, tk.Pos)
		}
	}
}

func TestTicksDegenerate(t *testing.T) {
	ticks := Ticks(Range{Min: 7, Max: 7}, 0)
	if len(ticks) != 1 || ticks[0].Value != 7 || ticks[0].Pos != 0.5 {
		t.Fatalf("degenerate ticks = %+v, want single centered tick at 7", ticks)
	}
}

func TestLUTSize(t *testing.T) {
	m, err := Get("plasma")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.stops) < 256 {
		t.Errorf("lookup table has %d stops, want at least 256", len(m.stops))
	}
}

func TestPaletteStability(t *testing.T) {
	p := NewPalette()
	p.Assign([]int{3, 1, 7})

	first := p.Color(3)
	p.Assign([]int{9, 3})
	if p.Color(3) != first {
		t.Error("re-assigning an ID changed its color")
	}
	if p.Color(1) == p.Color(7) {
		t.Error("distinct IDs share a color")
	}
	if p.Count() != 4 {
		t.Errorf("palette has %d entries, want 4", p.Count())
	}

	// First-seen order decides the color, not the ID value.
	q := NewPalette()
	q.Assign([]int{100})
	if q.Color(100) != first {
		t.Error("first assigned ID should get the first palette slot")
	}
}
