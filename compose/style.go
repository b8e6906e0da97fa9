package compose

import (
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"bacmotion/logging"
)

var namedColors = map[string]color.RGBA{
	"white":  {R: 255, G: 255, B: 255, A: 255},
	"black":  {R: 0, G: 0, B: 0, A: 255},
	"red":    {R: 255, G: 0, B: 0, A: 255},
	"green":  {R: 0, G: 255, B: 0, A: 255},
	"blue":   {R: 0, G: 0, B: 255, A: 255},
	"yellow": {R: 255, G: 255, B: 0, A: 255},
}

// namedColor resolves a configured color name. Validation has already
// substituted defaults for unknown names, so white is only a guard.
func namedColor(name string) color.RGBA {
	if c, ok := namedColors[strings.ToLower(name)]; ok {
		return c
	}
	return namedColors["white"]
}

var hersheyFonts = map[string]gocv.HersheyFont{
	"hershey-simplex":        gocv.FontHersheySimplex,
	"hershey-plain":          gocv.FontHersheyPlain,
	"hershey-duplex":         gocv.FontHersheyDuplex,
	"hershey-complex":        gocv.FontHersheyComplex,
	"hershey-triplex":        gocv.FontHersheyTriplex,
	"hershey-complex-small":  gocv.FontHersheyComplexSmall,
	"hershey-script-simplex": gocv.FontHersheyScriptSimplex,
	"hershey-script-complex": gocv.FontHersheyScriptComplex,
}

const fallbackFontName = "hershey-simplex"

// fontFor resolves a configured font family, substituting the simplex
// face for unknown names with a warning. The substitution is degraded
// rendering, not a render failure.
func fontFor(family string) gocv.HersheyFont {
	if f, ok := hersheyFonts[strings.ToLower(family)]; ok {
		return f
	}
	e := &ResourceUnavailableError{Kind: "font", Name: family, Substitute: fallbackFontName}
	logging.Warning("%v", e)
	return hersheyFonts[fallbackFontName]
}

// fontScaleFor converts a pixel font size to an OpenCV font scale by
// probing the face's height at scale 1.
func fontScaleFor(font gocv.HersheyFont, sizePx int) float64 {
	base := gocv.GetTextSize("0", font, 1.0, 1)
	if base.Y <= 0 {
		return 1.0
	}
	return float64(sizePx) / float64(base.Y)
}

func textSize(text string, font gocv.HersheyFont, scale float64, thickness int) image.Point {
	return gocv.GetTextSize(text, font, scale, thickness)
}

func fontThickness(bold bool) int {
	if bold {
		return 2
	}
	return 1
}
