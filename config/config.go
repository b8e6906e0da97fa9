// Package config defines the render configuration: every layer toggle,
// numeric range and style parameter consumed by a render call. A
// RenderConfig is treated as an immutable snapshot — mutation means
// copying, never editing a config a render might be reading.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Anchor is an annotation anchor point in output-frame pixel
// coordinates, origin top-left. Negative coordinates select the
// element's automatic placement for the current output size.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsAuto reports whether the anchor requests automatic placement.
func (a Anchor) IsAuto() bool {
	return a.X < 0 || a.Y < 0
}

// AutoAnchor is the default anchor value.
func AutoAnchor() Anchor {
	return Anchor{X: -1, Y: -1}
}

// GlobalConfig holds acquisition and playback parameters.
type GlobalConfig struct {
	OriginalFPS float64 `json:"original_fps"`
	UmPerPixel  float64 `json:"um_per_pixel"`
	OutputFPS   float64 `json:"output_fps"`
	OutputScale float64 `json:"output_scale"`
}

// MaskConfig controls the colored mask overlay.
type MaskConfig struct {
	Enabled bool    `json:"enabled"`
	Opacity float64 `json:"opacity"`
}

// ContourConfig controls object boundary drawing.
type ContourConfig struct {
	Enabled   bool `json:"enabled"`
	Thickness int  `json:"thickness"`
}

// CentroidConfig controls centroid marker drawing.
type CentroidConfig struct {
	Enabled     bool   `json:"enabled"`
	MarkerShape string `json:"marker_shape"`
	MarkerSize  int    `json:"marker_size"`
}

// EllipseAxesConfig controls fitted ellipse axis drawing.
type EllipseAxesConfig struct {
	ShowMajorAxis  bool   `json:"show_major_axis"`
	ShowMinorAxis  bool   `json:"show_minor_axis"`
	MajorThickness int    `json:"major_thickness"`
	MajorColor     string `json:"major_color"`
	MinorThickness int    `json:"minor_thickness"`
	MinorColor     string `json:"minor_color"`
}

// TrajectoryConfig controls trajectory polyline drawing.
type TrajectoryConfig struct {
	Enabled   bool    `json:"enabled"`
	Mode      string  `json:"mode"`
	DelayTime float64 `json:"delay_time"`
	Thickness int     `json:"thickness"`
	ColorMode string  `json:"color_mode"`
}

// TimeLabelConfig controls the elapsed-time annotation.
type TimeLabelConfig struct {
	Enabled    bool   `json:"enabled"`
	Unit       string `json:"unit"`
	FontFamily string `json:"font_family"`
	FontSize   int    `json:"font_size"`
	FontBold   bool   `json:"font_bold"`
	Color      string `json:"color"`
	Anchor     Anchor `json:"anchor"`
}

// ScaleBarConfig controls the physical scale bar annotation.
type ScaleBarConfig struct {
	Enabled      bool    `json:"enabled"`
	Thickness    int     `json:"thickness"`
	LengthUm     float64 `json:"length_um"`
	BarColor     string  `json:"bar_color"`
	TextEnabled  bool    `json:"text_enabled"`
	TextPosition string  `json:"text_position"`
	TextGap      int     `json:"text_gap"`
	FontFamily   string  `json:"font_family"`
	FontSize     int     `json:"font_size"`
	FontBold     bool    `json:"font_bold"`
	TextColor    string  `json:"text_color"`
	Anchor       Anchor  `json:"anchor"`
}

// SpeedLabelConfig controls the playback speed annotation.
type SpeedLabelConfig struct {
	Enabled    bool   `json:"enabled"`
	FontFamily string `json:"font_family"`
	FontSize   int    `json:"font_size"`
	FontBold   bool   `json:"font_bold"`
	Color      string `json:"color"`
	Anchor     Anchor `json:"anchor"`
}

// ColorbarConfig controls the velocity legend. BarHeight and BarWidth
// of zero select automatic sizing from the output image height.
// TickInterval of zero selects automatic nice-step ticks; AutoRange
// derives VMin/VMax from the loaded dataset's velocity range.
type ColorbarConfig struct {
	Enabled         bool    `json:"enabled"`
	Colormap        string  `json:"colormap"`
	BarHeight       int     `json:"bar_height"`
	BarWidth        int     `json:"bar_width"`
	Title           string  `json:"title"`
	TitleFontFamily string  `json:"title_font_family"`
	TitleFontSize   int     `json:"title_font_size"`
	TitleFontBold   bool    `json:"title_font_bold"`
	TitleColor      string  `json:"title_color"`
	TitlePosition   string  `json:"title_position"`
	TitleGap        int     `json:"title_gap"`
	AutoRange       bool    `json:"auto_range"`
	VMin            float64 `json:"vmin"`
	VMax            float64 `json:"vmax"`
	TickInterval    float64 `json:"tick_interval"`
	TickFontFamily  string  `json:"tick_font_family"`
	TickFontSize    int     `json:"tick_font_size"`
	TickFontBold    bool    `json:"tick_font_bold"`
	TickColor       string  `json:"tick_color"`
	BorderThickness int     `json:"border_thickness"`
	TickThickness   int     `json:"tick_thickness"`
	TickLength      int     `json:"tick_length"`
	Anchor          Anchor  `json:"anchor"`
}

// OutputConfig controls export naming and container selection.
type OutputConfig struct {
	VideoFormat   string `json:"video_format"`
	ImagePrefix   string `json:"image_prefix"`
	SubfolderName string `json:"subfolder_name"`
	StartNumber   int    `json:"start_number"`
}

// RenderConfig aggregates every visualization parameter. It contains
// only value types so a plain copy is a deep copy.
type RenderConfig struct {
	Global      GlobalConfig      `json:"global"`
	Mask        MaskConfig        `json:"mask"`
	Contour     ContourConfig     `json:"contour"`
	Centroid    CentroidConfig    `json:"centroid"`
	EllipseAxes EllipseAxesConfig `json:"ellipse_axes"`
	Trajectory  TrajectoryConfig  `json:"trajectory"`
	TimeLabel   TimeLabelConfig   `json:"time_label"`
	ScaleBar    ScaleBarConfig    `json:"scale_bar"`
	SpeedLabel  SpeedLabelConfig  `json:"speed_label"`
	Colorbar    ColorbarConfig    `json:"colorbar"`
	Output      OutputConfig      `json:"output"`
}

// Default returns a configuration with every parameter at its
// documented default.
func Default() RenderConfig {
	return RenderConfig{
		Global: GlobalConfig{
			OriginalFPS: 1.0,
			UmPerPixel:  1.0,
			OutputFPS:   30.0,
			OutputScale: 1.0,
		},
		Mask: MaskConfig{
			Enabled: true,
			Opacity: 0.5,
		},
		Contour: ContourConfig{
			Enabled:   true,
			Thickness: 2,
		},
		Centroid: CentroidConfig{
			Enabled:     false,
			MarkerShape: "circle",
			MarkerSize:  5,
		},
		EllipseAxes: EllipseAxesConfig{
			MajorThickness: 1,
			MajorColor:     "white",
			MinorThickness: 1,
			MinorColor:     "white",
		},
		Trajectory: TrajectoryConfig{
			Enabled:   true,
			Mode:      "full",
			DelayTime: 1.0,
			Thickness: 1,
			ColorMode: "object",
		},
		TimeLabel: TimeLabelConfig{
			Enabled:    true,
			Unit:       "s",
			FontFamily: "hershey-simplex",
			FontSize:   24,
			Color:      "white",
			Anchor:     AutoAnchor(),
		},
		ScaleBar: ScaleBarConfig{
			Enabled:      true,
			Thickness:    3,
			LengthUm:     50.0,
			BarColor:     "white",
			TextEnabled:  true,
			TextPosition: "below",
			TextGap:      5,
			FontFamily:   "hershey-simplex",
			FontSize:     18,
			TextColor:    "white",
			Anchor:       AutoAnchor(),
		},
		SpeedLabel: SpeedLabelConfig{
			Enabled:    true,
			FontFamily: "hershey-simplex",
			FontSize:   20,
			Color:      "white",
			Anchor:     AutoAnchor(),
		},
		Colorbar: ColorbarConfig{
			Enabled:         true,
			Colormap:        "viridis",
			Title:           "Speed (um/s)",
			TitleFontFamily: "hershey-simplex",
			TitleFontSize:   14,
			TitleColor:      "black",
			TitlePosition:   "top",
			TitleGap:        5,
			AutoRange:       true,
			VMin:            0.0,
			VMax:            100.0,
			TickFontFamily:  "hershey-simplex",
			TickFontSize:    12,
			TickColor:       "black",
			BorderThickness: 1,
			TickThickness:   1,
			TickLength:      5,
			Anchor:          AutoAnchor(),
		},
		Output: OutputConfig{
			VideoFormat:   "mp4",
			ImagePrefix:   "frame_",
			SubfolderName: "frames",
			StartNumber:   1,
		},
	}
}

// Clone returns an independent copy of the configuration.
func (c RenderConfig) Clone() RenderConfig {
	return c
}

// SpeedRatio returns outputFPS / originalFPS.
func (c RenderConfig) SpeedRatio() float64 {
	if c.Global.OriginalFPS <= 0 {
		return 1.0
	}
	return c.Global.OutputFPS / c.Global.OriginalFPS
}

// SpeedRatioText formats the playback speed ratio for the speed label.
func (c RenderConfig) SpeedRatioText() string {
	ratio := c.SpeedRatio()
	if ratio >= 1 {
		if ratio == float64(int(ratio)) {
			return fmt.Sprintf("%dx", int(ratio))
		}
		return fmt.Sprintf("%.1fx", ratio)
	}
	return fmt.Sprintf("%.2fx", ratio)
}

// Fingerprint returns a stable hash of the configuration, used to key
// cached frame renders.
func (c RenderConfig) Fingerprint() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ToJSON serializes the configuration with indentation.
func (c RenderConfig) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Save writes the configuration to a JSON file, creating parent
// directories as needed.
func (c RenderConfig) Save(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %v", err)
	}
	return nil
}

// Load reads a configuration file. Missing fields keep their defaults
// and out-of-range fields are substituted; the returned issues list all
// substitutions. Only an unreadable file or malformed JSON fails the
// load as a whole.
func Load(path string) (RenderConfig, []ValidationIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), nil, fmt.Errorf("failed to read configuration: %v", err)
	}
	return Parse(data)
}

// Parse decodes JSON configuration data over the defaults and
// validates every field.
func Parse(data []byte) (RenderConfig, []ValidationIssue, error) {
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), nil, fmt.Errorf("malformed configuration: %v", err)
	}
	issues := cfg.Validate()
	return cfg, issues, nil
}
