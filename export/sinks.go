package export

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"bacmotion/logging"
)

// FrameSink receives composed frames in ascending order. Close
// finalizes the output; a sink is single-writer.
type FrameSink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// SinkWriteError is a fatal sink failure. The pipeline aborts on the
// first one, leaving a contiguous prefix of written frames.
type SinkWriteError struct {
	Path string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// VideoSink writes an MP4 or AVI container through the OpenCV video
// writer. MP4 uses the mp4v codec, AVI uses MJPG.
type VideoSink struct {
	path   string
	writer *gocv.VideoWriter
}

// NewVideoSink opens a video file for w x h frames at the given
// playback fps. format selects the container: "mp4" or "avi".
func NewVideoSink(path, format string, fps float64, w, h int) (*VideoSink, error) {
	codec := "mp4v"
	if format == "avi" {
		codec = "MJPG"
	}

	writer, err := gocv.VideoWriterFile(path, codec, fps, w, h, true)
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: err}
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, &SinkWriteError{Path: path, Err: fmt.Errorf("video writer failed to open (codec %s)", codec)}
	}

	logging.Info("Writing video %s (%s, %.2f fps, %dx%d)", path, codec, fps, w, h)
	return &VideoSink{path: path, writer: writer}, nil
}

func (s *VideoSink) Write(frame gocv.Mat) error {
	if err := s.writer.Write(frame); err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}
	return nil
}

func (s *VideoSink) Close() error {
	return s.writer.Close()
}

// ImageSequenceSink writes numbered PNG files, prefix followed by a
// six-digit counter.
type ImageSequenceSink struct {
	dir    string
	prefix string
	next   int
}

// NewImageSequenceSink creates dir if needed. Numbering starts at
// start.
func NewImageSequenceSink(dir, prefix string, start int) (*ImageSequenceSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &SinkWriteError{Path: dir, Err: err}
	}
	return &ImageSequenceSink{dir: dir, prefix: prefix, next: start}, nil
}

func (s *ImageSequenceSink) Write(frame gocv.Mat) error {
	path := filepath.Join(s.dir, fmt.Sprintf("%s%06d.png", s.prefix, s.next))
	if ok := gocv.IMWrite(path, frame); !ok {
		return &SinkWriteError{Path: path, Err: fmt.Errorf("image encode failed")}
	}
	s.next++
	return nil
}

func (s *ImageSequenceSink) Close() error { return nil }

// GIFSink accumulates frames and writes an animated GIF on Close.
// Frames are quantized to the Plan 9 palette.
type GIFSink struct {
	path   string
	delay  int // per frame, hundredths of a second
	anim   gif.GIF
	closed bool
}

func NewGIFSink(path string, fps float64) *GIFSink {
	delay := 10
	if fps > 0 {
		delay = int(100/fps + 0.5)
		if delay < 1 {
			delay = 1
		}
	}
	return &GIFSink{path: path, delay: delay}
}

func (s *GIFSink) Write(frame gocv.Mat) error {
	img, err := frame.ToImage()
	if err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}

	b := img.Bounds()
	pal := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(pal, b, img, b.Min)

	s.anim.Image = append(s.anim.Image, pal)
	s.anim.Delay = append(s.anim.Delay, s.delay)
	return nil
}

func (s *GIFSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	f, err := os.Create(s.path)
	if err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}
	defer f.Close()

	if err := gif.EncodeAll(f, &s.anim); err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}
	logging.Info("Wrote GIF %s (%d frames)", s.path, len(s.anim.Image))
	return nil
}
