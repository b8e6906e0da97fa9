// Package compose builds the final frames: base image, mask overlay,
// contours, centroid markers, ellipse axes, trajectories and the
// annotation layer, in that z-order. Pixel-space layers are drawn in
// source coordinates and scaled with the image; annotations live in
// output coordinates and never rescale.
package compose

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"bacmotion/colormap"
	"bacmotion/config"
	"bacmotion/logging"
	"bacmotion/sequence"
	"bacmotion/trajectory"
)

// OverlayModel is a composed frame split for interactive use: the base
// carries every burned pixel layer, the boxes are the annotations still
// floating above it. Burning the boxes in order yields the exact
// exported frame.
type OverlayModel struct {
	Frame int
	Time  float64
	Base  gocv.Mat
	Boxes []AnnotationBox
}

// Close releases the base and every patch.
func (m *OverlayModel) Close() {
	m.Base.Close()
	for i := range m.Boxes {
		m.Boxes[i].Close()
	}
}

// Compositor renders frames from a frame source, an optional mask
// source and a trajectory dataset under one immutable config snapshot.
// Create a new Compositor for a changed config.
type Compositor struct {
	frames  sequence.FrameSource
	masks   sequence.MaskSource
	engine  *trajectory.Engine
	vis     *trajectory.Visibility
	palette *colormap.Palette

	cfg  config.RenderConfig
	cmap *colormap.Map
	rng  colormap.Range
	mode trajectory.DisplayMode
	plan CanvasPlan

	frameInterval float64
}

// NewCompositor wires the render inputs together and plans the output
// canvas. masks may be nil when no segmentation is loaded; the mask,
// contour and ellipse-fallback layers are then skipped.
func NewCompositor(frames sequence.FrameSource, masks sequence.MaskSource,
	engine *trajectory.Engine, vis *trajectory.Visibility,
	palette *colormap.Palette, cfg config.RenderConfig) (*Compositor, error) {

	if frames == nil || frames.Count() == 0 {
		return nil, fmt.Errorf("no frames to render")
	}
	if cfg.Global.OriginalFPS <= 0 {
		return nil, fmt.Errorf("original fps must be positive, got %v", cfg.Global.OriginalFPS)
	}
	if masks != nil && masks.Count() < frames.Count() {
		return nil, fmt.Errorf("mask sequence has %d frames, need %d", masks.Count(), frames.Count())
	}

	cmap, err := colormap.Get(cfg.Colorbar.Colormap)
	if err != nil {
		sub := &ResourceUnavailableError{Kind: "colormap", Name: cfg.Colorbar.Colormap, Substitute: "viridis"}
		logging.Warning("%v", sub)
		cmap, _ = colormap.Get("viridis")
	}

	rng := colormap.Range{Min: cfg.Colorbar.VMin, Max: cfg.Colorbar.VMax}
	if cfg.Colorbar.AutoRange {
		rng.Min, rng.Max = engine.Dataset().VelocityRange()
	}

	mode, err := trajectory.ParseMode(cfg.Trajectory.Mode)
	if err != nil {
		logging.Warning("%v, using full", err)
		mode = trajectory.ModeFull
	}

	if vis == nil {
		vis = trajectory.NewVisibility()
	}
	if palette == nil {
		palette = colormap.NewPalette()
	}
	// Dataset objects claim their palette slots first, in
	// first-appearance order, so colors survive mask label gaps.
	for _, obj := range engine.Dataset().Objects() {
		palette.Color(obj.OriginalID)
	}

	w, h := frames.Bounds()
	c := &Compositor{
		frames:        frames,
		masks:         masks,
		engine:        engine,
		vis:           vis,
		palette:       palette,
		cfg:           cfg,
		cmap:          cmap,
		rng:           rng,
		mode:          mode,
		plan:          PlanCanvas(cfg, w, h, rng),
		frameInterval: 1.0 / cfg.Global.OriginalFPS,
	}
	return c, nil
}

// Plan returns the run-constant canvas geometry.
func (c *Compositor) Plan() CanvasPlan { return c.plan }

// FrameCount returns the number of renderable frames.
func (c *Compositor) FrameCount() int { return c.frames.Count() }

// FrameTime returns the acquisition time of frame i in seconds.
func (c *Compositor) FrameTime(i int) float64 { return float64(i) * c.frameInterval }

// VelocityRange returns the effective colorbar range for this run.
func (c *Compositor) VelocityRange() colormap.Range { return c.rng }

// Render composes frame i with every annotation burned in. The caller
// owns the returned Mat.
func (c *Compositor) Render(i int) (gocv.Mat, error) {
	model, err := c.RenderOverlayModel(i)
	if err != nil {
		return gocv.NewMat(), err
	}
	for _, box := range model.Boxes {
		BurnBox(&model.Base, box)
	}
	for i := range model.Boxes {
		model.Boxes[i].Close()
	}
	return model.Base, nil
}

// RenderOverlayModel composes frame i into a base buffer plus floating
// annotation boxes. The caller owns the model and must Close it.
func (c *Compositor) RenderOverlayModel(i int) (*OverlayModel, error) {
	t := c.FrameTime(i)

	src, err := c.frames.Frame(i)
	if err != nil {
		return nil, &FrameDataError{Frame: i, Err: err}
	}

	var labels *sequence.LabelMap
	if c.masks != nil {
		labels, err = c.masks.Labels(i)
		if err != nil {
			src.Close()
			return nil, &FrameDataError{Frame: i, Err: err}
		}
		c.palette.Assign(labels.IDs())
	}

	// Pixel layers in source space.
	if labels != nil && c.cfg.Mask.Enabled {
		c.blendMask(&src, labels, t)
	}
	if labels != nil && c.cfg.Contour.Enabled {
		c.drawContours(&src, labels, t)
	}
	if c.cfg.Centroid.Enabled {
		c.drawCentroids(&src, t)
	}
	if c.cfg.EllipseAxes.ShowMajorAxis || c.cfg.EllipseAxes.ShowMinorAxis {
		c.drawEllipseAxes(&src, labels, t)
	}
	if c.cfg.Trajectory.Enabled {
		c.drawTrajectories(&src, t)
	}

	base := c.toCanvas(src)

	model := &OverlayModel{Frame: i, Time: t, Base: base}
	model.Boxes = c.buildBoxes(t)
	return model, nil
}

// toCanvas scales the composed source frame and places it on the
// output canvas, filling any extension with white. Takes ownership of
// src.
func (c *Compositor) toCanvas(src gocv.Mat) gocv.Mat {
	scaled := src
	if c.plan.ScaledW != c.plan.SrcW || c.plan.ScaledH != c.plan.SrcH {
		scaled = gocv.NewMat()
		gocv.Resize(src, &scaled, image.Pt(c.plan.ScaledW, c.plan.ScaledH), 0, 0, gocv.InterpolationLinear)
		src.Close()
	}
	if !c.plan.Extended() {
		return scaled
	}

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0),
		c.plan.OutH, c.plan.OutW, gocv.MatTypeCV8UC3)
	roi := canvas.Region(image.Rect(0, 0, c.plan.ScaledW, c.plan.ScaledH))
	scaled.CopyTo(&roi)
	roi.Close()
	scaled.Close()
	return canvas
}

// buildBoxes renders the enabled annotations and resolves automatic
// anchors against the planned canvas.
func (c *Compositor) buildBoxes(t float64) []AnnotationBox {
	var boxes []AnnotationBox

	if c.cfg.TimeLabel.Enabled {
		box := timeLabelBox(c.cfg.TimeLabel, t)
		box.X, box.Y = c.resolveAnchor(c.cfg.TimeLabel.Anchor, BoxTimeLabel, &box)
		boxes = append(boxes, box)
	}
	if c.cfg.ScaleBar.Enabled && c.cfg.Global.UmPerPixel > 0 {
		barLen := int(c.plan.Scale(c.cfg.ScaleBar.LengthUm/c.cfg.Global.UmPerPixel) + 0.5)
		box := scaleBarBox(c.cfg.ScaleBar, barLen)
		box.X, box.Y = c.resolveAnchor(c.cfg.ScaleBar.Anchor, BoxScaleBar, &box)
		boxes = append(boxes, box)
	}
	if c.cfg.SpeedLabel.Enabled {
		box := speedLabelBox(c.cfg.SpeedLabel, c.cfg.SpeedRatioText())
		box.X, box.Y = c.resolveAnchor(c.cfg.SpeedLabel.Anchor, BoxSpeedLabel, &box)
		boxes = append(boxes, box)
	}
	if c.cfg.Colorbar.Enabled {
		boxes = append(boxes, colorbarBox(c.cfg.Colorbar, c.plan.Colorbar, c.cmap, c.rng))
	}
	return boxes
}

// resolveAnchor turns an automatic anchor into the element's default
// output-space placement. Explicit anchors pass through untouched.
func (c *Compositor) resolveAnchor(a config.Anchor, kind string, box *AnnotationBox) (int, int) {
	if !a.IsAuto() {
		return int(a.X), int(a.Y)
	}
	w, h := box.Patch.Cols(), box.Patch.Rows()
	switch kind {
	case BoxTimeLabel:
		return canvasMargin, canvasMargin
	case BoxSpeedLabel:
		return canvasMargin, c.plan.ScaledH - h - canvasMargin
	case BoxScaleBar:
		return c.plan.ScaledW - w - canvasMargin, c.plan.ScaledH - h - canvasMargin
	}
	return canvasMargin, canvasMargin
}

// toPixel converts a sample position in micrometers to source pixels.
func (c *Compositor) toPixel(x, y float64) image.Point {
	u := c.cfg.Global.UmPerPixel
	if u <= 0 {
		u = 1
	}
	return image.Pt(int(x/u+0.5), int(y/u+0.5))
}

// blendMask alpha-blends each visible object's color over its labeled
// pixels. Background pixels (label 0) are never touched.
func (c *Compositor) blendMask(dst *gocv.Mat, labels *sequence.LabelMap, t float64) {
	data, err := dst.DataPtrUint8()
	if err != nil {
		logging.Error("mask blend: %v", err)
		return
	}

	alpha := c.cfg.Mask.Opacity
	// nil marks hidden labels so visibility is checked once per label.
	cache := map[uint16]*colormap.RGB{}

	for idx, id := range labels.Pix {
		if id == 0 {
			continue
		}
		col, seen := cache[id]
		if !seen {
			if c.vis.IsVisible(int(id), t) {
				rgb := c.palette.Color(int(id))
				col = &rgb
			}
			cache[id] = col
		}
		if col == nil {
			continue
		}
		p := idx * 3
		data[p] = uint8((1-alpha)*float64(data[p]) + alpha*float64(col.B))
		data[p+1] = uint8((1-alpha)*float64(data[p+1]) + alpha*float64(col.G))
		data[p+2] = uint8((1-alpha)*float64(data[p+2]) + alpha*float64(col.R))
	}
}

// drawContours traces each visible object's outer boundary in its
// palette color.
func (c *Compositor) drawContours(dst *gocv.Mat, labels *sequence.LabelMap, t float64) {
	for _, id := range labels.IDs() {
		if !c.vis.IsVisible(id, t) {
			continue
		}
		contours := labelContours(labels, id)
		col := c.palette.Color(id).RGBA()
		for k := 0; k < contours.Size(); k++ {
			gocv.DrawContours(dst, contours, k, col, c.cfg.Contour.Thickness)
		}
		contours.Close()
	}
}

// labelContours extracts the outer contours of one label as a binary
// mask pass. The caller closes the result.
func labelContours(labels *sequence.LabelMap, id int) gocv.PointsVector {
	bin := gocv.NewMatWithSize(labels.H, labels.W, gocv.MatTypeCV8U)
	defer bin.Close()

	data, err := bin.DataPtrUint8()
	if err != nil {
		return gocv.NewPointsVector()
	}
	for i, v := range labels.Pix {
		if int(v) == id {
			data[i] = 255
		} else {
			data[i] = 0
		}
	}
	return gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
}

// drawCentroids marks each visible object's current position.
func (c *Compositor) drawCentroids(dst *gocv.Mat, t float64) {
	size := c.cfg.Centroid.MarkerSize
	for _, obj := range c.engine.Dataset().Objects() {
		if !c.vis.IsVisible(obj.OriginalID, t) {
			continue
		}
		pos, ok := c.engine.CurrentPosition(obj, t)
		if !ok {
			continue
		}
		center := c.toPixel(pos.X, pos.Y)
		col := c.palette.Color(obj.OriginalID).RGBA()
		drawMarker(dst, c.cfg.Centroid.MarkerShape, center, size, col)
	}
}

// drawMarker draws a filled centroid marker. size is the circumradius
// in source pixels.
func drawMarker(dst *gocv.Mat, shape string, center image.Point, size int, col color.RGBA) {
	switch shape {
	case "triangle":
		pts := polygonPoints(center, size, 3, -math.Pi/2)
		fillPolygon(dst, pts, col)
	case "star":
		pts := starPoints(center, size, -math.Pi/2)
		fillPolygon(dst, pts, col)
	default:
		gocv.Circle(dst, center, size, col, -1)
	}
}

// polygonPoints returns n vertices of a regular polygon.
func polygonPoints(center image.Point, radius, n int, phase float64) []image.Point {
	pts := make([]image.Point, n)
	for i := 0; i < n; i++ {
		a := phase + 2*math.Pi*float64(i)/float64(n)
		pts[i] = image.Pt(
			center.X+int(float64(radius)*math.Cos(a)+0.5),
			center.Y+int(float64(radius)*math.Sin(a)+0.5),
		)
	}
	return pts
}

// starPoints returns a five-pointed star with inner radius at 0.4 of
// the outer.
func starPoints(center image.Point, radius int, phase float64) []image.Point {
	inner := float64(radius) * 0.4
	pts := make([]image.Point, 10)
	for i := 0; i < 10; i++ {
		r := float64(radius)
		if i%2 == 1 {
			r = inner
		}
		a := phase + math.Pi*float64(i)/5
		pts[i] = image.Pt(
			center.X+int(r*math.Cos(a)+0.5),
			center.Y+int(r*math.Sin(a)+0.5),
		)
	}
	return pts
}

func fillPolygon(dst *gocv.Mat, pts []image.Point, col color.RGBA) {
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	gocv.FillPoly(dst, pv, col)
	pv.Close()
}

// axisFit is a fitted ellipse in source-pixel space: center plus the
// half-axis vectors.
type axisFit struct {
	cx, cy       float64
	majDX, majDY float64
	minDX, minDY float64
}

// drawEllipseAxes draws the fitted major and minor axis of each
// visible object. Shape descriptors from the dataset take precedence;
// objects without one fall back to an ellipse fit of their mask
// contour.
func (c *Compositor) drawEllipseAxes(dst *gocv.Mat, labels *sequence.LabelMap, t float64) {
	cfg := c.cfg.EllipseAxes
	majorCol := namedColor(cfg.MajorColor)
	minorCol := namedColor(cfg.MinorColor)

	for _, obj := range c.engine.Dataset().Objects() {
		if !c.vis.IsVisible(obj.OriginalID, t) {
			continue
		}
		fit := c.fitAxes(obj, labels, t)
		if fit == nil {
			continue
		}
		if cfg.ShowMajorAxis {
			p1 := image.Pt(int(fit.cx-fit.majDX+0.5), int(fit.cy-fit.majDY+0.5))
			p2 := image.Pt(int(fit.cx+fit.majDX+0.5), int(fit.cy+fit.majDY+0.5))
			gocv.Line(dst, p1, p2, majorCol, cfg.MajorThickness)
		}
		if cfg.ShowMinorAxis {
			p1 := image.Pt(int(fit.cx-fit.minDX+0.5), int(fit.cy-fit.minDY+0.5))
			p2 := image.Pt(int(fit.cx+fit.minDX+0.5), int(fit.cy+fit.minDY+0.5))
			gocv.Line(dst, p1, p2, minorCol, cfg.MinorThickness)
		}
	}
}

// fitAxes resolves the pixel-space ellipse for one object at time t.
func (c *Compositor) fitAxes(obj *trajectory.TrackedObject, labels *sequence.LabelMap, t float64) *axisFit {
	u := c.cfg.Global.UmPerPixel
	if u <= 0 {
		u = 1
	}
	if fit := c.engine.FitEllipse(obj, t); fit != nil {
		return &axisFit{
			cx: fit.CX / u, cy: fit.CY / u,
			majDX: fit.MajorDX / u, majDY: fit.MajorDY / u,
			minDX: fit.MinorDX / u, minDY: fit.MinorDY / u,
		}
	}
	if labels == nil || !obj.Appeared(t) {
		return nil
	}
	return maskEllipse(labels, obj.OriginalID)
}

// maskEllipse fits an ellipse to a label's contour. Needs at least
// five contour points.
func maskEllipse(labels *sequence.LabelMap, id int) *axisFit {
	contours := labelContours(labels, id)
	defer contours.Close()

	best := -1
	bestLen := 0
	for k := 0; k < contours.Size(); k++ {
		if n := contours.At(k).Size(); n > bestLen {
			best, bestLen = k, n
		}
	}
	if best < 0 || bestLen < 5 {
		return nil
	}

	rr := gocv.FitEllipse(contours.At(best))
	rad := rr.Angle * math.Pi / 180
	halfW := float64(rr.Width) / 2
	halfH := float64(rr.Height) / 2

	// Width edge lies along the rotation angle.
	wDX, wDY := halfW*math.Cos(rad), halfW*math.Sin(rad)
	hDX, hDY := -halfH*math.Sin(rad), halfH*math.Cos(rad)

	fit := &axisFit{cx: float64(rr.Center.X), cy: float64(rr.Center.Y)}
	if halfW >= halfH {
		fit.majDX, fit.majDY = wDX, wDY
		fit.minDX, fit.minDY = hDX, hDY
	} else {
		fit.majDX, fit.majDY = hDX, hDY
		fit.minDX, fit.minDY = wDX, wDY
	}
	return fit
}

// drawTrajectories draws each visible object's path under the
// configured display mode, colored per object or per segment velocity.
func (c *Compositor) drawTrajectories(dst *gocv.Mat, t float64) {
	byVelocity := c.cfg.Trajectory.ColorMode == "velocity"
	thickness := c.cfg.Trajectory.Thickness

	for _, obj := range c.engine.Dataset().Objects() {
		if !c.vis.IsVisible(obj.OriginalID, t) {
			continue
		}
		start, samples := c.engine.VisibleWindow(obj, t, c.mode, c.cfg.Trajectory.DelayTime)
		if len(samples) < 2 {
			continue
		}
		objCol := c.palette.Color(obj.OriginalID).RGBA()

		for k := 1; k < len(samples); k++ {
			p1 := c.toPixel(samples[k-1].X, samples[k-1].Y)
			p2 := c.toPixel(samples[k].X, samples[k].Y)
			col := objCol
			if byVelocity {
				v := c.engine.VelocityAt(obj, start+k)
				col = c.cmap.ColorFor(v, c.rng).RGBA()
			}
			gocv.Line(dst, p1, p2, col, thickness)
		}
	}
}
