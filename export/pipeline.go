// Package export drives frame-by-frame rendering into a sink: it owns
// the run state machine, cooperative cancellation and the render
// cache. Frames go out strictly in ascending order.
package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gocv.io/x/gocv"

	"bacmotion/logging"
)

// State is the pipeline lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Renderer produces composed frames by index. The compositor satisfies
// this.
type Renderer interface {
	FrameCount() int
	Render(i int) (gocv.Mat, error)
}

// Progress reports one completed frame.
type Progress struct {
	Frame int // last finished frame index
	Total int
}

// Result summarizes a finished run. FramesWritten is always a
// contiguous prefix starting at frame 0.
type Result struct {
	RunID         string
	State         State
	FramesWritten int
	Elapsed       time.Duration
	Err           error
}

// Pipeline exports every frame of a renderer into a sink. A pipeline
// runs once; build a new one for the next export.
type Pipeline struct {
	renderer Renderer
	sink     FrameSink

	cache       *RenderCache
	fingerprint string
	onProgress  func(Progress)

	mu    sync.Mutex
	state State
}

// NewPipeline pairs a renderer with a sink. The pipeline does not own
// the sink; the caller closes it after Run returns.
func NewPipeline(r Renderer, sink FrameSink) *Pipeline {
	return &Pipeline{renderer: r, sink: sink, state: StateIdle}
}

// WithCache enables the render cache for this run, keyed by the config
// fingerprint.
func (p *Pipeline) WithCache(c *RenderCache, fingerprint string) *Pipeline {
	p.cache = c
	p.fingerprint = fingerprint
	return p
}

// OnProgress registers a callback invoked after every written frame,
// on the export goroutine.
func (p *Pipeline) OnProgress(fn func(Progress)) {
	p.onProgress = fn
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run exports all frames in ascending order. Cancellation is honored
// at frame boundaries only: the frame in flight always finishes or
// fails before the run stops. The first fatal error aborts the run.
func (p *Pipeline) Run(ctx context.Context) Result {
	res := Result{RunID: uuid.NewString()}

	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		res.State = p.state
		res.Err = fmt.Errorf("pipeline already ran (state %s)", p.state)
		return res
	}
	p.state = StateRunning
	p.mu.Unlock()

	total := p.renderer.FrameCount()
	start := time.Now()
	logging.Info("Export %s started: %d frames", res.RunID, total)

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			p.setState(StateCancelled)
			res.State = StateCancelled
			res.FramesWritten = i
			res.Elapsed = time.Since(start)
			logging.Info("Export %s cancelled after %d frames", res.RunID, i)
			return res
		default:
		}

		frame, err := p.renderFrame(i)
		if err == nil {
			err = p.sink.Write(frame)
			frame.Close()
		}
		if err != nil {
			p.setState(StateFailed)
			res.State = StateFailed
			res.FramesWritten = i
			res.Elapsed = time.Since(start)
			res.Err = err
			logging.Error("Export %s failed at frame %d: %v", res.RunID, i, err)
			return res
		}

		if p.onProgress != nil {
			p.onProgress(Progress{Frame: i, Total: total})
		}
	}

	p.setState(StateCompleted)
	res.State = StateCompleted
	res.FramesWritten = total
	res.Elapsed = time.Since(start)
	logging.Info("Export %s completed: %d frames in %v", res.RunID, total, res.Elapsed)
	return res
}

func (p *Pipeline) renderFrame(i int) (gocv.Mat, error) {
	if p.cache != nil {
		if frame, ok := p.cache.Get(p.fingerprint, i); ok {
			return frame, nil
		}
	}
	frame, err := p.renderer.Render(i)
	if err != nil {
		frame.Close()
		return gocv.Mat{}, err
	}
	if p.cache != nil {
		p.cache.Put(p.fingerprint, i, frame)
	}
	return frame, nil
}
