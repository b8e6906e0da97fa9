package export

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

type fakeRenderer struct {
	total    int
	failAt   int // -1 for never
	rendered int
}

func (r *fakeRenderer) FrameCount() int { return r.total }

func (r *fakeRenderer) Render(i int) (gocv.Mat, error) {
	if r.failAt >= 0 && i == r.failAt {
		return gocv.NewMat(), fmt.Errorf("frame %d is broken", i)
	}
	r.rendered++
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i), 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3), nil
}

type collectSink struct {
	frames int
	closed bool
}

func (s *collectSink) Write(frame gocv.Mat) error {
	s.frames++
	return nil
}

func (s *collectSink) Close() error {
	s.closed = true
	return nil
}

func TestPipelineCompletes(t *testing.T) {
	sink := &collectSink{}
	p := NewPipeline(&fakeRenderer{total: 5, failAt: -1}, sink)

	var seen []int
	p.OnProgress(func(pr Progress) {
		seen = append(seen, pr.Frame)
		if pr.Total != 5 {
			t.Errorf("progress total = %d, want 5", pr.Total)
		}
	})

	res := p.Run(context.Background())
	if res.State != StateCompleted {
		t.Fatalf("state = %s, want completed (err %v)", res.State, res.Err)
	}
	if res.FramesWritten != 5 || sink.frames != 5 {
		t.Errorf("frames written = %d (sink %d), want 5", res.FramesWritten, sink.frames)
	}
	if res.RunID == "" {
		t.Error("missing run ID")
	}
	for i, f := range seen {
		if f != i {
			t.Fatalf("progress out of order: %v", seen)
		}
	}
	if p.State() != StateCompleted {
		t.Errorf("pipeline state = %s, want completed", p.State())
	}
}

func TestPipelineCancellation(t *testing.T) {
	sink := &collectSink{}
	p := NewPipeline(&fakeRenderer{total: 100, failAt: -1}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	p.OnProgress(func(pr Progress) {
		if pr.Frame == 2 {
			cancel()
		}
	})

	res := p.Run(ctx)
	if res.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", res.State)
	}
	// Cancellation lands at the next frame boundary: frames 0..2 are out.
	if res.FramesWritten != 3 || sink.frames != 3 {
		t.Errorf("frames written = %d (sink %d), want 3", res.FramesWritten, sink.frames)
	}
}

func TestPipelineFailsFast(t *testing.T) {
	sink := &collectSink{}
	p := NewPipeline(&fakeRenderer{total: 10, failAt: 2}, sink)

	res := p.Run(context.Background())
	if res.State != StateFailed {
		t.Fatalf("state = %s, want failed", res.State)
	}
	if res.Err == nil {
		t.Error("missing error")
	}
	if res.FramesWritten != 2 || sink.frames != 2 {
		t.Errorf("frames written = %d (sink %d), want contiguous prefix of 2", res.FramesWritten, sink.frames)
	}
}

func TestPipelineRunsOnce(t *testing.T) {
	p := NewPipeline(&fakeRenderer{total: 1, failAt: -1}, &collectSink{})

	if res := p.Run(context.Background()); res.State != StateCompleted {
		t.Fatalf("first run state = %s", res.State)
	}
	if res := p.Run(context.Background()); res.Err == nil {
		t.Error("second run should be rejected")
	}
}

func TestPipelineCachedFramesSkipRenderer(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	r1 := &fakeRenderer{total: 3, failAt: -1}
	res := NewPipeline(r1, &collectSink{}).WithCache(cache, "fp").Run(context.Background())
	if res.State != StateCompleted {
		t.Fatalf("first run state = %s (err %v)", res.State, res.Err)
	}
	if r1.rendered != 3 {
		t.Fatalf("first run rendered %d frames, want 3", r1.rendered)
	}

	r2 := &fakeRenderer{total: 3, failAt: -1}
	res = NewPipeline(r2, &collectSink{}).WithCache(cache, "fp").Run(context.Background())
	if res.State != StateCompleted {
		t.Fatalf("second run state = %s (err %v)", res.State, res.Err)
	}
	if r2.rendered != 0 {
		t.Errorf("second run rendered %d frames, want 0 (cache hits)", r2.rendered)
	}

	// A different fingerprint misses.
	r3 := &fakeRenderer{total: 3, failAt: -1}
	NewPipeline(r3, &collectSink{}).WithCache(cache, "other").Run(context.Background())
	if r3.rendered != 3 {
		t.Errorf("changed fingerprint rendered %d frames, want 3", r3.rendered)
	}
}

func TestCacheMissesOnCorruptOrAbsentEntry(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	_, err = cache.db.Exec(
		`INSERT INTO renders (fingerprint, frame, png) VALUES (?, ?, ?)`,
		"fp", 0, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("seeding corrupt entry: %v", err)
	}

	if _, ok := cache.Get("fp", 0); ok {
		t.Error("corrupt entry should read as a miss")
	}
	if _, ok := cache.Get("fp", 1); ok {
		t.Error("absent entry should read as a miss")
	}

	// A miss never hands out a frame the pipeline would have to close.
	r := &fakeRenderer{total: 1, failAt: -1}
	res := NewPipeline(r, &collectSink{}).WithCache(cache, "fp").Run(context.Background())
	if res.State != StateCompleted {
		t.Fatalf("state = %s (err %v)", res.State, res.Err)
	}
	if r.rendered != 1 {
		t.Errorf("rendered %d frames, want 1 (corrupt entry re-rendered)", r.rendered)
	}
}

func TestImageSequenceNumbering(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewImageSequenceSink(dir, "frame_", 1)
	if err != nil {
		t.Fatalf("NewImageSequenceSink: %v", err)
	}
	defer sink.Close()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i := 0; i < 3; i++ {
		if err := sink.Write(frame); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	for _, name := range []string{"frame_000001.png", "frame_000002.png", "frame_000003.png"} {
		img := gocv.IMRead(filepath.Join(dir, name), gocv.IMReadColor)
		if img.Empty() {
			t.Errorf("missing or unreadable %s", name)
		}
		img.Close()
	}
}
