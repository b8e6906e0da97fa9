// Package colormap maps scalar values to colors through named lookup
// tables and assigns stable per-object identification colors.
package colormap

import (
	"fmt"
	"image/color"
	"math"
	"sync"
)

// RGB is an 8-bit-per-channel color in RGB order.
type RGB struct {
	R, G, B uint8
}

// RGBA converts to a fully opaque color.RGBA for drawing.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Range is a concrete scalar value range for color mapping.
type Range struct {
	Min float64
	Max float64
}

// Degenerate reports whether the range has no extent.
func (r Range) Degenerate() bool {
	return r.Max <= r.Min
}

// Map is an expanded colormap lookup table.
type Map struct {
	name  string
	stops []RGB
}

var (
	lutMu    sync.Mutex
	lutCache = map[string]*Map{}
)

// Get returns the named colormap, expanding its lookup table on first
// use. Unknown names return an error; the caller decides the fallback.
func Get(name string) (*Map, error) {
	lutMu.Lock()
	defer lutMu.Unlock()

	if m, ok := lutCache[name]; ok {
		return m, nil
	}

	anchors, ok := anchorTables[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", name)
	}

	m := &Map{name: name, stops: expandAnchors(anchors)}
	lutCache[name] = m
	return m, nil
}

// Name returns the colormap name.
func (m *Map) Name() string {
	return m.name
}

// ColorFor maps value into the range and returns the interpolated color.
// Values outside the range are clamped. A degenerate range (min == max)
// maps every input to the midpoint color.
func (m *Map) ColorFor(value float64, r Range) RGB {
	if r.Degenerate() {
		return m.stops[len(m.stops)/2]
	}

	t := (value - r.Min) / (r.Max - r.Min)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	pos := t * float64(len(m.stops)-1)
	i := int(pos)
	if i >= len(m.stops)-1 {
		return m.stops[len(m.stops)-1]
	}
	frac := pos - float64(i)

	a := m.stops[i]
	b := m.stops[i+1]
	return RGB{
		R: uint8(float64(a.R) + frac*(float64(b.R)-float64(a.R)) + 0.5),
		G: uint8(float64(a.G) + frac*(float64(b.G)-float64(a.G)) + 0.5),
		B: uint8(float64(a.B) + frac*(float64(b.B)-float64(a.B)) + 0.5),
	}
}

// goldenAngle spreads neighboring assignment indices far apart on the
// hue wheel so adjacent object IDs stay visually distinct.
const goldenAngle = 137.50776405003785

const (
	paletteSaturation = 0.75
	paletteValue      = 0.9
)

// Palette assigns stable identification colors to object IDs. Colors are
// keyed by first-seen order and are never reassigned while the palette
// is alive.
type Palette struct {
	mu     sync.Mutex
	colors map[int]RGB
	next   int
}

// NewPalette creates an empty object palette.
func NewPalette() *Palette {
	return &Palette{colors: make(map[int]RGB)}
}

// Assign registers IDs in the given order. IDs already assigned keep
// their color.
func (p *Palette) Assign(ids []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.assignLocked(id)
	}
}

// Color returns the stable color for an object ID, assigning the next
// palette slot if the ID has not been seen before.
func (p *Palette) Color(id int) RGB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assignLocked(id)
}

func (p *Palette) assignLocked(id int) RGB {
	if c, ok := p.colors[id]; ok {
		return c
	}
	hue := math.Mod(float64(p.next)*goldenAngle, 360) / 360
	c := hsvToRGB(hue, paletteSaturation, paletteValue)
	p.colors[id] = c
	p.next++
	return c
}

// Count returns the number of assigned IDs.
func (p *Palette) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.colors)
}

// hsvToRGB converts h, s, v in [0,1] to an 8-bit RGB color.
func hsvToRGB(h, s, v float64) RGB {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}

	return RGB{
		R: uint8(r*255 + 0.5),
		G: uint8(g*255 + 0.5),
		B: uint8(b*255 + 0.5),
	}
}
