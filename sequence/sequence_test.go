package sequence

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestNaturalSort(t *testing.T) {
	names := []string{
		"frame_10.png",
		"frame_2.png",
		"frame_1.png",
		"frame_007.png",
		"frame_100.png",
	}
	sortNatural(names)

	want := []string{
		"frame_1.png",
		"frame_2.png",
		"frame_007.png",
		"frame_10.png",
		"frame_100.png",
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, names[i], want[i], names)
		}
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"a2", "a10", true},
		{"a10", "a2", false},
		{"a2", "a2", false},
		{"mask_9.tif", "mask_11.tif", true},
		{"b1", "a2", false},
		{"a", "ab", true},
		{"img001", "img1x", true},
	}
	for _, tt := range tests {
		if got := naturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("naturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLabelMapAt(t *testing.T) {
	m := &LabelMap{W: 3, H: 2, Pix: []uint16{0, 1, 2, 0, 5, 5}}

	if got := m.At(1, 0); got != 1 {
		t.Errorf("At(1,0) = %d, want 1", got)
	}
	if got := m.At(-1, 0); got != 0 {
		t.Errorf("out-of-bounds read should be background, got %d", got)
	}
	if got := m.At(2, 5); got != 0 {
		t.Errorf("out-of-bounds read should be background, got %d", got)
	}

	ids := m.IDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 5 {
		t.Errorf("IDs() = %v, want [1 2 5]", ids)
	}
}

func writeLabelPNG(t *testing.T, path string, w, h int, labels map[image.Point]uint16) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for pt, v := range labels {
		img.Pix[(pt.Y*w+pt.X)*2] = uint8(v >> 8)
		img.Pix[(pt.Y*w+pt.X)*2+1] = uint8(v)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestOpenMasksDecodesLabels(t *testing.T) {
	dir := t.TempDir()
	writeLabelPNG(t, filepath.Join(dir, "mask_1.png"), 4, 3, map[image.Point]uint16{
		{X: 1, Y: 1}: 3,
		{X: 2, Y: 2}: 260,
	})

	src, err := OpenMasks(dir, 0, 0)
	if err != nil {
		t.Fatalf("OpenMasks: %v", err)
	}
	if src.Count() != 1 {
		t.Fatalf("Count = %d, want 1", src.Count())
	}

	m, err := src.Labels(0)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if m.W != 4 || m.H != 3 {
		t.Fatalf("dimensions %dx%d, want 4x3", m.W, m.H)
	}
	if m.At(1, 1) != 3 || m.At(2, 2) != 260 || m.At(0, 0) != 0 {
		t.Errorf("unexpected labels: %v", m.Pix)
	}

	label, err := src.LabelAt(0, 1, 1)
	if err != nil || label != 3 {
		t.Errorf("LabelAt = %d, %v; want 3, nil", label, err)
	}
}

func TestOpenMasksDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeLabelPNG(t, filepath.Join(dir, "mask_1.png"), 4, 3, nil)

	if _, err := OpenMasks(dir, 8, 8); err == nil {
		t.Fatal("expected dimension mismatch error")
	} else if _, ok := err.(*DimensionMismatchError); !ok {
		t.Fatalf("error type %T, want *DimensionMismatchError", err)
	}
}
