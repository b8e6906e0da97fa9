package trajectory

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func lineObject(id int) *TrackedObject {
	// Straight line at 1 um/s along x.
	return &TrackedObject{
		ID: id,
		Samples: []Sample{
			{Time: 0, X: 0, Y: 0},
			{Time: 1, X: 1, Y: 0},
			{Time: 2, X: 2, Y: 0},
			{Time: 3, X: 3, Y: 0},
		},
	}
}

func TestVisibleWindowModes(t *testing.T) {
	obj := lineObject(1)
	ds := NewDataset()
	if err := ds.Add(obj); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e := NewEngine(ds)

	tests := []struct {
		name      string
		mode      DisplayMode
		now       float64
		window    float64
		wantTimes []float64
	}{
		{"full clips to now", ModeFull, 2, 0, []float64{0, 1, 2}},
		{"start to current", ModeStartToCurrent, 2.5, 0, []float64{0, 1, 2}},
		{"delay before", ModeDelayBefore, 2, 1.5, []float64{1, 2}},
		{"delay after", ModeDelayAfter, 1, 1.5, []float64{1, 2}},
		{"delay before at start", ModeDelayBefore, 0, 1.5, []float64{0}},
		{"full at end", ModeFull, 10, 0, []float64{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, samples := e.VisibleWindow(obj, tt.now, tt.mode, tt.window)
			if len(samples) != len(tt.wantTimes) {
				t.Fatalf("got %d samples, want %d", len(samples), len(tt.wantTimes))
			}
			for i, want := range tt.wantTimes {
				if samples[i].Time != want {
					t.Errorf("sample %d: time %v, want %v", i, samples[i].Time, want)
				}
			}
		})
	}
}

func TestVisibleWindowBeforeAppearance(t *testing.T) {
	obj := &TrackedObject{ID: 1, Samples: []Sample{{Time: 5, X: 0, Y: 0}, {Time: 6, X: 1, Y: 0}}}
	ds := NewDataset()
	if err := ds.Add(obj); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e := NewEngine(ds)

	if _, samples := e.VisibleWindow(obj, 4, ModeFull, 0); len(samples) != 0 {
		t.Errorf("expected no samples before first appearance, got %d", len(samples))
	}
}

func TestDelayWindowsMirror(t *testing.T) {
	obj := lineObject(1)
	ds := NewDataset()
	if err := ds.Add(obj); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e := NewEngine(ds)

	_, before := e.VisibleWindow(obj, 2, ModeDelayBefore, 1.0)
	_, after := e.VisibleWindow(obj, 1, ModeDelayAfter, 1.0)
	if len(before) != len(after) {
		t.Fatalf("window lengths differ: before=%d after=%d", len(before), len(after))
	}
}

func TestVelocity(t *testing.T) {
	obj := lineObject(1)
	ds := NewDataset()
	if err := ds.Add(obj); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e := NewEngine(ds)

	if v := e.VelocityAt(obj, 0); v != 0 {
		t.Errorf("first sample velocity = %v, want 0", v)
	}
	if v := e.VelocityAt(obj, 2); math.Abs(v-1.0) > 1e-12 {
		t.Errorf("velocity = %v, want 1.0", v)
	}

	min, max := ds.VelocityRange()
	if math.Abs(min-1.0) > 1e-12 || math.Abs(max-1.0) > 1e-12 {
		t.Errorf("velocity range = [%v, %v], want [1, 1]", min, max)
	}
}

func TestVelocityRangeEmpty(t *testing.T) {
	ds := NewDataset()
	min, max := ds.VelocityRange()
	if min != 0 || max != 100 {
		t.Errorf("empty dataset range = [%v, %v], want [0, 100]", min, max)
	}
}

func TestDuplicateTimeRejected(t *testing.T) {
	obj := &TrackedObject{ID: 1, Samples: []Sample{{Time: 1, X: 0}, {Time: 1, X: 2}}}
	ds := NewDataset()
	if err := ds.Add(obj); err == nil {
		t.Fatal("expected error for duplicate sample times")
	}
}

func TestVisibilityWindows(t *testing.T) {
	v := NewVisibility()
	v.HideBefore(1, 2.0)
	v.HideAfter(2, 3.0)

	if v.IsVisible(1, 2.0) || !v.IsVisible(1, 2.1) {
		t.Error("hide-before threshold not inclusive")
	}
	if v.IsVisible(2, 3.0) || !v.IsVisible(2, 2.9) {
		t.Error("hide-after threshold not inclusive")
	}
	if !v.IsVisible(3, 0) {
		t.Error("unmarked objects should be visible")
	}

	v.Unhide(1)
	if !v.IsVisible(1, 0) {
		t.Error("unhide did not restore visibility")
	}
	if got := len(v.Records()); got != 1 {
		t.Errorf("records = %d, want 1", got)
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracks.csv")
	data := "id,frame,x,y,major,minor,angle\n" +
		"7,2,10,20,8,4,30\n" +
		"7,3,12,20,8,4,30\n" +
		"3,0,0,0,6,2,0\n" +
		"3,1,2,0,6,2,0\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	// fps=2 so one frame is 0.5 s, 0.5 um per pixel.
	ds, err := LoadCSV(path, 2.0, 0.5)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	objs := ds.Objects()
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2", len(objs))
	}
	// Object with original ID 3 appears first and gets ID 1.
	if objs[0].ID != 1 || objs[0].OriginalID != 3 {
		t.Errorf("first object ID=%d original=%d, want 1/3", objs[0].ID, objs[0].OriginalID)
	}
	if objs[1].ID != 2 || objs[1].OriginalID != 7 {
		t.Errorf("second object ID=%d original=%d, want 2/7", objs[1].ID, objs[1].OriginalID)
	}

	s := objs[1].Samples[0]
	if s.Time != 1.0 {
		t.Errorf("time = %v, want 1.0", s.Time)
	}
	if s.X != 5.0 || s.Y != 10.0 {
		t.Errorf("position = (%v, %v), want (5, 10)", s.X, s.Y)
	}
	if s.Shape == nil || s.Shape.MajorHalf != 2.0 || s.Shape.MinorHalf != 1.0 {
		t.Errorf("shape = %+v, want half-axes 2/1", s.Shape)
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("id,x,y\n1,0,0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(path, 1, 1); err == nil {
		t.Fatal("expected error for missing frame column")
	}
}
