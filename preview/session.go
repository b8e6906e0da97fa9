// Package preview serves interactive render snapshots over a
// websocket: a browser shell can seek, drag annotation boxes, toggle
// object visibility and push config changes, receiving one snapshot
// per change. Snapshots use the overlay model, so what the preview
// shows is exactly what an export burns in.
package preview

import (
	"encoding/base64"
	"fmt"

	"gocv.io/x/gocv"

	"bacmotion/colormap"
	"bacmotion/compose"
	"bacmotion/config"
	"bacmotion/logging"
	"bacmotion/sequence"
	"bacmotion/trajectory"
)

// Session is the mutable preview state: the current frame, the live
// config and the compositor built from it. All access goes through the
// server's message handling, one message at a time.
type Session struct {
	frames  sequence.FrameSource
	masks   sequence.MaskSource
	engine  *trajectory.Engine
	vis     *trajectory.Visibility
	palette *colormap.Palette

	cfg   config.RenderConfig
	comp  *compose.Compositor
	frame int
}

// NewSession builds the initial compositor.
func NewSession(frames sequence.FrameSource, masks sequence.MaskSource,
	engine *trajectory.Engine, cfg config.RenderConfig) (*Session, error) {

	s := &Session{
		frames:  frames,
		masks:   masks,
		engine:  engine,
		vis:     trajectory.NewVisibility(),
		palette: colormap.NewPalette(),
		cfg:     cfg,
	}
	comp, err := compose.NewCompositor(frames, masks, engine, s.vis, s.palette, cfg)
	if err != nil {
		return nil, err
	}
	s.comp = comp
	return s, nil
}

// Config returns the session's current config snapshot.
func (s *Session) Config() config.RenderConfig { return s.cfg }

// Seek moves the preview to a frame, clamped to the sequence.
func (s *Session) Seek(frame int) {
	if frame < 0 {
		frame = 0
	}
	if max := s.frames.Count() - 1; frame > max {
		frame = max
	}
	s.frame = frame
}

// Drag pins an annotation's anchor to an absolute output-space
// position. The box patch never rescales; only its anchor moves.
func (s *Session) Drag(kind string, x, y float64) error {
	cfg := s.cfg.Clone()
	anchor := config.Anchor{X: x, Y: y}
	switch kind {
	case compose.BoxTimeLabel:
		cfg.TimeLabel.Anchor = anchor
	case compose.BoxScaleBar:
		cfg.ScaleBar.Anchor = anchor
	case compose.BoxSpeedLabel:
		cfg.SpeedLabel.Anchor = anchor
	case compose.BoxColorbar:
		cfg.Colorbar.Anchor = anchor
	default:
		return fmt.Errorf("unknown annotation kind %q", kind)
	}
	return s.apply(cfg)
}

// ApplyConfig replaces the session config with a validated parse of
// raw JSON. Field substitutions are logged, not fatal.
func (s *Session) ApplyConfig(raw []byte) error {
	cfg, issues, err := config.Parse(raw)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		logging.Warning("Config: %v", issue)
	}
	return s.apply(cfg)
}

// Hide marks an object hidden before or after a time.
func (s *Session) Hide(id int, mode string, t float64) error {
	switch mode {
	case "before":
		s.vis.HideBefore(id, t)
	case "after":
		s.vis.HideAfter(id, t)
	default:
		return fmt.Errorf("unknown hide mode %q", mode)
	}
	return nil
}

// Unhide restores an object's visibility.
func (s *Session) Unhide(id int) {
	s.vis.Unhide(id)
}

// apply swaps in a new config by rebuilding the compositor. On failure
// the previous compositor stays live.
func (s *Session) apply(cfg config.RenderConfig) error {
	comp, err := compose.NewCompositor(s.frames, s.masks, s.engine, s.vis, s.palette, cfg)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.comp = comp
	return nil
}

// Snapshot renders the current frame as a wire payload: the base image
// and each annotation box as base64 PNG, with absolute positions.
func (s *Session) Snapshot() (map[string]any, error) {
	model, err := s.comp.RenderOverlayModel(s.frame)
	if err != nil {
		return nil, err
	}
	defer model.Close()

	base, err := encodePNG(model.Base)
	if err != nil {
		return nil, err
	}

	boxes := make([]map[string]any, 0, len(model.Boxes))
	for _, box := range model.Boxes {
		patch, err := encodePNG(box.Patch)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, map[string]any{
			"kind":  box.Kind,
			"x":     box.X,
			"y":     box.Y,
			"w":     box.Patch.Cols(),
			"h":     box.Patch.Rows(),
			"patch": patch,
		})
	}

	plan := s.comp.Plan()
	return map[string]any{
		"type":   "snapshot",
		"frame":  model.Frame,
		"time":   model.Time,
		"total":  s.comp.FrameCount(),
		"width":  plan.OutW,
		"height": plan.OutH,
		"image":  base,
		"boxes":  boxes,
	}, nil
}

func encodePNG(m gocv.Mat) (string, error) {
	buf, err := gocv.IMEncode(".png", m)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %v", err)
	}
	defer buf.Close()
	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
