package compose

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"bacmotion/colormap"
	"bacmotion/config"
)

// Annotation box kinds.
const (
	BoxTimeLabel  = "time_label"
	BoxScaleBar   = "scale_bar"
	BoxSpeedLabel = "speed_label"
	BoxColorbar   = "colorbar"
)

// AnnotationBox is a prerendered annotation patch positioned in
// absolute output-space pixels. The patch is BGRA; burning an overlay
// model alpha-blends each patch onto the base in list order. Callers
// that drag a box move X and Y only; the patch itself never rescales.
type AnnotationBox struct {
	Kind  string
	X, Y  int
	Patch gocv.Mat
}

// Close releases the patch.
func (b *AnnotationBox) Close() {
	b.Patch.Close()
}

func newPatch(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC4)
}

// putOutlinedText draws text with a black outline pass so light text
// stays legible over light frames.
func putOutlinedText(dst *gocv.Mat, text string, org image.Point, font gocv.HersheyFont, scale float64, col color.RGBA, thickness int) {
	outline := color.RGBA{A: 255}
	gocv.PutText(dst, text, org, font, scale, outline, thickness+2)
	gocv.PutText(dst, text, org, font, scale, col, thickness)
}

// textPatch renders a standalone text annotation patch.
func textPatch(text, family string, sizePx int, bold bool, colName string) gocv.Mat {
	font := fontFor(family)
	scale := fontScaleFor(font, sizePx)
	thick := fontThickness(bold)

	sz, baseline := gocv.GetTextSizeWithBaseline(text, font, scale, thick)
	pad := thick + 2
	patch := newPatch(sz.X+2*pad, sz.Y+baseline+2*pad)
	putOutlinedText(&patch, text, image.Pt(pad, pad+sz.Y), font, scale, namedColor(colName), thick)
	return patch
}

// formatTimeValue formats elapsed seconds in the configured unit.
func formatTimeValue(t float64, unit string) string {
	switch unit {
	case "ms":
		return fmt.Sprintf("%.0f ms", t*1000)
	case "min":
		return fmt.Sprintf("%.2f min", t/60)
	case "h":
		return fmt.Sprintf("%.2f h", t/3600)
	default:
		return fmt.Sprintf("%.2f s", t)
	}
}

func timeLabelBox(cfg config.TimeLabelConfig, t float64) AnnotationBox {
	patch := textPatch(formatTimeValue(t, cfg.Unit), cfg.FontFamily, cfg.FontSize, cfg.FontBold, cfg.Color)
	return AnnotationBox{Kind: BoxTimeLabel, Patch: patch}
}

func speedLabelBox(cfg config.SpeedLabelConfig, text string) AnnotationBox {
	patch := textPatch(text, cfg.FontFamily, cfg.FontSize, cfg.FontBold, cfg.Color)
	return AnnotationBox{Kind: BoxSpeedLabel, Patch: patch}
}

// scaleBarBox renders the physical scale bar with its optional length
// text. barLenPx is the bar length already converted to output pixels.
func scaleBarBox(cfg config.ScaleBarConfig, barLenPx int) AnnotationBox {
	if barLenPx < 1 {
		barLenPx = 1
	}
	barCol := namedColor(cfg.BarColor)

	text := fmt.Sprintf("%g um", cfg.LengthUm)
	font := fontFor(cfg.FontFamily)
	scale := fontScaleFor(font, cfg.FontSize)
	thick := fontThickness(cfg.FontBold)

	textW, textH, baseline := 0, 0, 0
	if cfg.TextEnabled {
		sz, bl := gocv.GetTextSizeWithBaseline(text, font, scale, thick)
		textW, textH, baseline = sz.X, sz.Y, bl
	}

	w := barLenPx
	if textW > w {
		w = textW
	}
	h := cfg.Thickness
	if cfg.TextEnabled {
		h += cfg.TextGap + textH + baseline
	}
	patch := newPatch(w, h)

	barX := (w - barLenPx) / 2
	barY := 0
	textY := cfg.Thickness + cfg.TextGap + textH
	if cfg.TextEnabled && cfg.TextPosition == "above" {
		barY = textH + baseline + cfg.TextGap
		textY = textH
	}

	gocv.Rectangle(&patch, image.Rect(barX, barY, barX+barLenPx, barY+cfg.Thickness), barCol, -1)
	if cfg.TextEnabled {
		putOutlinedText(&patch, text, image.Pt((w-textW)/2, textY), font, scale, namedColor(cfg.TextColor), thick)
	}
	return AnnotationBox{Kind: BoxScaleBar, Patch: patch}
}

// colorbarBox renders the velocity legend block: gradient bar with the
// maximum on top, border, ticks with labels, and the title.
func colorbarBox(cfg config.ColorbarConfig, layout ColorbarLayout, cmap *colormap.Map, rng colormap.Range) AnnotationBox {
	patch := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 255),
		layout.BlockH, layout.BlockW, gocv.MatTypeCV8UC4)

	// Gradient rows, top row at the range maximum.
	for j := 0; j < layout.BarH; j++ {
		frac := 0.0
		if layout.BarH > 1 {
			frac = float64(j) / float64(layout.BarH-1)
		}
		value := rng.Max - frac*(rng.Max-rng.Min)
		c := cmap.ColorFor(value, rng).RGBA()
		y := layout.BarY + j
		gocv.Line(&patch, image.Pt(layout.BarX, y), image.Pt(layout.BarX+layout.BarW-1, y), c, 1)
	}

	if cfg.BorderThickness > 0 {
		gocv.Rectangle(&patch,
			image.Rect(layout.BarX, layout.BarY, layout.BarX+layout.BarW, layout.BarY+layout.BarH),
			namedColor(cfg.TickColor), cfg.BorderThickness)
	}

	tickFont := fontFor(cfg.TickFontFamily)
	tickScale := fontScaleFor(tickFont, cfg.TickFontSize)
	tickThick := fontThickness(cfg.TickFontBold)
	tickCol := namedColor(cfg.TickColor)

	for i, t := range layout.Ticks {
		y := layout.BarY + layout.BarH - 1 - int(t.Pos*float64(layout.BarH-1))
		x0 := layout.BarX + layout.BarW
		gocv.Line(&patch, image.Pt(x0, y), image.Pt(x0+cfg.TickLength, y), tickCol, cfg.TickThickness)

		label := layout.Labels[i]
		sz := textSize(label, tickFont, tickScale, tickThick)
		gocv.PutText(&patch, label, image.Pt(x0+cfg.TickLength+tickLabelGap, y+sz.Y/2),
			tickFont, tickScale, tickCol, tickThick)
	}

	if cfg.Title != "" {
		titleFont := fontFor(cfg.TitleFontFamily)
		titleScale := fontScaleFor(titleFont, cfg.TitleFontSize)
		titleThick := fontThickness(cfg.TitleFontBold)
		sz := textSize(cfg.Title, titleFont, titleScale, titleThick)
		x := (layout.BlockW - sz.X) / 2
		y := blockPadding + sz.Y
		if cfg.TitlePosition != "top" {
			y = layout.BarY + layout.BarH + cfg.TitleGap + sz.Y
		}
		gocv.PutText(&patch, cfg.Title, image.Pt(x, y), titleFont, titleScale, namedColor(cfg.TitleColor), titleThick)
	}

	return AnnotationBox{Kind: BoxColorbar, X: layout.X, Y: layout.Y, Patch: patch}
}

// BurnBox alpha-blends one annotation patch onto the base frame,
// clipping at the canvas edges. Export and preview both go through
// this path, so a burned preview frame matches the export exactly.
func BurnBox(base *gocv.Mat, box AnnotationBox) {
	bw, bh := base.Cols(), base.Rows()
	pw, ph := box.Patch.Cols(), box.Patch.Rows()

	baseData, err := base.DataPtrUint8()
	if err != nil {
		return
	}
	patchData, err := box.Patch.DataPtrUint8()
	if err != nil {
		return
	}

	for py := 0; py < ph; py++ {
		y := box.Y + py
		if y < 0 || y >= bh {
			continue
		}
		for px := 0; px < pw; px++ {
			x := box.X + px
			if x < 0 || x >= bw {
				continue
			}
			pi := (py*pw + px) * 4
			a := int(patchData[pi+3])
			if a == 0 {
				continue
			}
			bi := (y*bw + x) * 3
			for c := 0; c < 3; c++ {
				src := int(patchData[pi+c])
				dst := int(baseData[bi+c])
				baseData[bi+c] = uint8((src*a + dst*(255-a)) / 255)
			}
		}
	}
}
