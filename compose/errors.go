package compose

import "fmt"

// FrameDataError is a fatal per-frame failure: the frame or its mask
// could not be loaded or did not match the sequence. It aborts an
// export run.
type FrameDataError struct {
	Frame int
	Err   error
}

func (e *FrameDataError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
}

func (e *FrameDataError) Unwrap() error { return e.Err }

// ResourceUnavailableError records a non-fatal substitution: a
// configured font or colormap was unknown and a default was used
// instead. It is logged, never returned up the render path.
type ResourceUnavailableError struct {
	Kind       string
	Name       string
	Substitute string
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("unknown %s %q, using %q", e.Kind, e.Name, e.Substitute)
}
