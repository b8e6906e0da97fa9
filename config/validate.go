package config

import (
	"fmt"
	"math"
)

// ValidationIssue records one field substitution made during
// validation: the field path, why it was rejected, and the default that
// replaced it.
type ValidationIssue struct {
	Field   string
	Reason  string
	Applied interface{}
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s (using %v)", v.Field, v.Reason, v.Applied)
}

var namedColors = map[string]bool{
	"white": true, "black": true, "red": true,
	"blue": true, "green": true, "yellow": true,
}

var trajectoryModes = map[string]bool{
	"full": true, "start_to_current": true,
	"delay_before": true, "delay_after": true,
}

// Validate checks every field against its documented range, replacing
// rejected values with defaults in place. It returns the list of
// substitutions and never fails.
func (c *RenderConfig) Validate() []ValidationIssue {
	def := Default()
	var issues []ValidationIssue

	sub := func(field, reason string, applied interface{}) {
		issues = append(issues, ValidationIssue{Field: field, Reason: reason, Applied: applied})
	}

	checkFloat := func(field string, v *float64, min, max, fallback float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < min || *v > max {
			sub(field, fmt.Sprintf("value %v outside [%v, %v]", *v, min, max), fallback)
			*v = fallback
		}
	}
	checkInt := func(field string, v *int, min, max, fallback int) {
		if *v < min || *v > max {
			sub(field, fmt.Sprintf("value %d outside [%d, %d]", *v, min, max), fallback)
			*v = fallback
		}
	}
	checkColor := func(field string, v *string, fallback string) {
		if !namedColors[*v] {
			sub(field, fmt.Sprintf("unknown color %q", *v), fallback)
			*v = fallback
		}
	}
	checkEnum := func(field string, v *string, allowed map[string]bool, fallback string) {
		if !allowed[*v] {
			sub(field, fmt.Sprintf("unknown value %q", *v), fallback)
			*v = fallback
		}
	}

	checkFloat("global.original_fps", &c.Global.OriginalFPS, 0.001, 10000, def.Global.OriginalFPS)
	checkFloat("global.um_per_pixel", &c.Global.UmPerPixel, 1e-9, 1e9, def.Global.UmPerPixel)
	checkFloat("global.output_fps", &c.Global.OutputFPS, 0.1, 240, def.Global.OutputFPS)
	checkFloat("global.output_scale", &c.Global.OutputScale, 0.1, 4.0, def.Global.OutputScale)

	checkFloat("mask.opacity", &c.Mask.Opacity, 0, 1, def.Mask.Opacity)
	checkInt("contour.thickness", &c.Contour.Thickness, 1, 99, def.Contour.Thickness)

	checkEnum("centroid.marker_shape", &c.Centroid.MarkerShape,
		map[string]bool{"circle": true, "triangle": true, "star": true},
		def.Centroid.MarkerShape)
	checkInt("centroid.marker_size", &c.Centroid.MarkerSize, 1, 99, def.Centroid.MarkerSize)

	checkInt("ellipse_axes.major_thickness", &c.EllipseAxes.MajorThickness, 1, 99, def.EllipseAxes.MajorThickness)
	checkColor("ellipse_axes.major_color", &c.EllipseAxes.MajorColor, def.EllipseAxes.MajorColor)
	checkInt("ellipse_axes.minor_thickness", &c.EllipseAxes.MinorThickness, 1, 99, def.EllipseAxes.MinorThickness)
	checkColor("ellipse_axes.minor_color", &c.EllipseAxes.MinorColor, def.EllipseAxes.MinorColor)

	checkEnum("trajectory.mode", &c.Trajectory.Mode, trajectoryModes, def.Trajectory.Mode)
	checkFloat("trajectory.delay_time", &c.Trajectory.DelayTime, 0.001, 1e6, def.Trajectory.DelayTime)
	checkInt("trajectory.thickness", &c.Trajectory.Thickness, 1, 99, def.Trajectory.Thickness)
	checkEnum("trajectory.color_mode", &c.Trajectory.ColorMode,
		map[string]bool{"object": true, "velocity": true}, def.Trajectory.ColorMode)

	checkEnum("time_label.unit", &c.TimeLabel.Unit,
		map[string]bool{"ms": true, "s": true, "min": true, "h": true}, def.TimeLabel.Unit)
	checkInt("time_label.font_size", &c.TimeLabel.FontSize, 6, 200, def.TimeLabel.FontSize)
	checkColor("time_label.color", &c.TimeLabel.Color, def.TimeLabel.Color)

	checkInt("scale_bar.thickness", &c.ScaleBar.Thickness, 1, 99, def.ScaleBar.Thickness)
	checkFloat("scale_bar.length_um", &c.ScaleBar.LengthUm, 1e-6, 1e9, def.ScaleBar.LengthUm)
	checkColor("scale_bar.bar_color", &c.ScaleBar.BarColor, def.ScaleBar.BarColor)
	checkEnum("scale_bar.text_position", &c.ScaleBar.TextPosition,
		map[string]bool{"above": true, "below": true}, def.ScaleBar.TextPosition)
	checkInt("scale_bar.text_gap", &c.ScaleBar.TextGap, 0, 99, def.ScaleBar.TextGap)
	checkInt("scale_bar.font_size", &c.ScaleBar.FontSize, 6, 200, def.ScaleBar.FontSize)
	checkColor("scale_bar.text_color", &c.ScaleBar.TextColor, def.ScaleBar.TextColor)

	checkInt("speed_label.font_size", &c.SpeedLabel.FontSize, 6, 200, def.SpeedLabel.FontSize)
	checkColor("speed_label.color", &c.SpeedLabel.Color, def.SpeedLabel.Color)

	checkInt("colorbar.bar_height", &c.Colorbar.BarHeight, 0, 8192, def.Colorbar.BarHeight)
	checkInt("colorbar.bar_width", &c.Colorbar.BarWidth, 0, 1024, def.Colorbar.BarWidth)
	checkInt("colorbar.title_font_size", &c.Colorbar.TitleFontSize, 6, 200, def.Colorbar.TitleFontSize)
	checkColor("colorbar.title_color", &c.Colorbar.TitleColor, def.Colorbar.TitleColor)
	checkEnum("colorbar.title_position", &c.Colorbar.TitlePosition,
		map[string]bool{"top": true, "bottom": true}, def.Colorbar.TitlePosition)
	checkInt("colorbar.title_gap", &c.Colorbar.TitleGap, 0, 99, def.Colorbar.TitleGap)
	if math.IsNaN(c.Colorbar.VMin) || math.IsInf(c.Colorbar.VMin, 0) {
		sub("colorbar.vmin", "value is not finite", def.Colorbar.VMin)
		c.Colorbar.VMin = def.Colorbar.VMin
	}
	if math.IsNaN(c.Colorbar.VMax) || math.IsInf(c.Colorbar.VMax, 0) {
		sub("colorbar.vmax", "value is not finite", def.Colorbar.VMax)
		c.Colorbar.VMax = def.Colorbar.VMax
	}
	if c.Colorbar.VMax < c.Colorbar.VMin {
		sub("colorbar.vmax", fmt.Sprintf("vmax %v below vmin %v", c.Colorbar.VMax, c.Colorbar.VMin), def.Colorbar.VMax)
		c.Colorbar.VMin = def.Colorbar.VMin
		c.Colorbar.VMax = def.Colorbar.VMax
	}
	checkFloat("colorbar.tick_interval", &c.Colorbar.TickInterval, 0, 1e9, def.Colorbar.TickInterval)
	checkInt("colorbar.tick_font_size", &c.Colorbar.TickFontSize, 6, 200, def.Colorbar.TickFontSize)
	checkColor("colorbar.tick_color", &c.Colorbar.TickColor, def.Colorbar.TickColor)
	checkInt("colorbar.border_thickness", &c.Colorbar.BorderThickness, 1, 99, def.Colorbar.BorderThickness)
	checkInt("colorbar.tick_thickness", &c.Colorbar.TickThickness, 1, 99, def.Colorbar.TickThickness)
	checkInt("colorbar.tick_length", &c.Colorbar.TickLength, 0, 99, def.Colorbar.TickLength)

	checkEnum("output.video_format", &c.Output.VideoFormat,
		map[string]bool{"mp4": true, "avi": true, "gif": true, "png": true}, def.Output.VideoFormat)
	if c.Output.StartNumber < 0 {
		sub("output.start_number", fmt.Sprintf("value %d is negative", c.Output.StartNumber), def.Output.StartNumber)
		c.Output.StartNumber = def.Output.StartNumber
	}

	for _, a := range []struct {
		field  string
		anchor *Anchor
	}{
		{"time_label.anchor", &c.TimeLabel.Anchor},
		{"scale_bar.anchor", &c.ScaleBar.Anchor},
		{"speed_label.anchor", &c.SpeedLabel.Anchor},
		{"colorbar.anchor", &c.Colorbar.Anchor},
	} {
		if math.IsNaN(a.anchor.X) || math.IsNaN(a.anchor.Y) ||
			math.IsInf(a.anchor.X, 0) || math.IsInf(a.anchor.Y, 0) {
			sub(a.field, "coordinates are not finite", AutoAnchor())
			*a.anchor = AutoAnchor()
		}
	}

	return issues
}
