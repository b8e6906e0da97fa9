package compose

import (
	"fmt"
	"math"

	"bacmotion/colormap"
	"bacmotion/config"
)

const (
	canvasMargin = 10
	blockPadding = 4
	tickLabelGap = 3
)

// ColorbarLayout is the precomputed geometry of the colorbar block in
// output space. All coordinates are absolute output pixels.
type ColorbarLayout struct {
	Enabled        bool
	X, Y           int
	BlockW, BlockH int

	// Bar rectangle relative to the block origin.
	BarX, BarY, BarW, BarH int

	Ticks  []colormap.Tick
	Labels []string
	TitleH int
}

// CanvasPlan fixes the output geometry for a whole run: the scaled
// image size, the final canvas size and where the colorbar block sits.
// Planning once per run keeps every exported frame the same size.
type CanvasPlan struct {
	SrcW, SrcH       int
	ScaledW, ScaledH int
	OutW, OutH       int
	Colorbar         ColorbarLayout
}

// Scale converts a source-space length to output space.
func (p CanvasPlan) Scale(v float64) float64 {
	if p.SrcW == 0 {
		return v
	}
	return v * float64(p.ScaledW) / float64(p.SrcW)
}

// Extended reports whether the canvas is larger than the scaled image,
// requiring a white background fill.
func (p CanvasPlan) Extended() bool {
	return p.OutW > p.ScaledW || p.OutH > p.ScaledH
}

// PlanCanvas computes the run-constant output geometry. When the
// colorbar is enabled with an automatic anchor it is placed on a white
// extension strip to the right of the image; an explicit anchor that
// overflows the image bounds extends the canvas just enough to fit.
func PlanCanvas(cfg config.RenderConfig, srcW, srcH int, rng colormap.Range) CanvasPlan {
	plan := CanvasPlan{
		SrcW:    srcW,
		SrcH:    srcH,
		ScaledW: int(math.Round(float64(srcW) * cfg.Global.OutputScale)),
		ScaledH: int(math.Round(float64(srcH) * cfg.Global.OutputScale)),
	}
	if plan.ScaledW < 1 {
		plan.ScaledW = 1
	}
	if plan.ScaledH < 1 {
		plan.ScaledH = 1
	}
	plan.OutW, plan.OutH = plan.ScaledW, plan.ScaledH

	if !cfg.Colorbar.Enabled {
		return plan
	}

	cb := planColorbarBlock(cfg.Colorbar, plan.ScaledH, rng)

	if cfg.Colorbar.Anchor.IsAuto() {
		cb.X = plan.ScaledW + canvasMargin
		cb.Y = (plan.ScaledH - cb.BlockH) / 2
		if cb.Y < 0 {
			cb.Y = 0
		}
		plan.OutW = cb.X + cb.BlockW + canvasMargin
	} else {
		cb.X = int(cfg.Colorbar.Anchor.X)
		cb.Y = int(cfg.Colorbar.Anchor.Y)
		if cb.X+cb.BlockW > plan.OutW {
			plan.OutW = cb.X + cb.BlockW
		}
		if cb.Y+cb.BlockH > plan.OutH {
			plan.OutH = cb.Y + cb.BlockH
		}
	}
	if plan.OutH < cb.BlockH {
		plan.OutH = cb.BlockH
	}

	plan.Colorbar = cb
	return plan
}

// planColorbarBlock sizes the colorbar and its labels. Bar height
// defaults to two thirds of the image height and bar width to a
// fifteenth of it, floored at 5 px.
func planColorbarBlock(cb config.ColorbarConfig, imageH int, rng colormap.Range) ColorbarLayout {
	barH := cb.BarHeight
	if barH <= 0 {
		barH = imageH * 2 / 3
	}
	barW := cb.BarWidth
	if barW <= 0 {
		barW = imageH / 15
		if barW < 5 {
			barW = 5
		}
	}

	ticks := colormap.Ticks(rng, cb.TickInterval)
	labels := make([]string, len(ticks))
	for i, t := range ticks {
		labels[i] = formatTickLabel(t.Value)
	}

	tickFont := fontFor(cb.TickFontFamily)
	tickScale := fontScaleFor(tickFont, cb.TickFontSize)
	tickThick := fontThickness(cb.TickFontBold)
	labelW := 0
	for _, l := range labels {
		if w := textSize(l, tickFont, tickScale, tickThick).X; w > labelW {
			labelW = w
		}
	}

	titleH := 0
	titleW := 0
	if cb.Title != "" {
		titleFont := fontFor(cb.TitleFontFamily)
		titleScale := fontScaleFor(titleFont, cb.TitleFontSize)
		sz := textSize(cb.Title, titleFont, titleScale, fontThickness(cb.TitleFontBold))
		titleH = sz.Y + cb.TitleGap
		titleW = sz.X
	}

	layout := ColorbarLayout{
		Enabled: true,
		BarX:    blockPadding,
		BarW:    barW,
		BarH:    barH,
		Ticks:   ticks,
		Labels:  labels,
		TitleH:  titleH,
	}
	layout.BarY = blockPadding
	if cb.TitlePosition == "top" {
		layout.BarY += titleH
	}

	layout.BlockW = blockPadding + barW + cb.TickLength + tickLabelGap + labelW + blockPadding
	if titleW+2*blockPadding > layout.BlockW {
		layout.BlockW = titleW + 2*blockPadding
	}
	layout.BlockH = blockPadding + titleH + barH + blockPadding
	return layout
}

func formatTickLabel(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.2f", v)
}
