package config

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Fatalf("default config has validation issues: %v", issues)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Global.OutputScale = 2.0
	cfg.Trajectory.Mode = "delay_before"
	cfg.TimeLabel.Anchor = Anchor{X: 12, Y: 34}

	data, err := cfg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	parsed, issues, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("round trip produced issues: %v", issues)
	}
	if !reflect.DeepEqual(cfg, parsed) {
		t.Error("round-tripped config differs")
	}
}

func TestParseMissingFieldsKeepDefaults(t *testing.T) {
	parsed, issues, err := Parse([]byte(`{"global": {"output_scale": 0.5}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if parsed.Global.OutputScale != 0.5 {
		t.Errorf("output_scale = %v, want 0.5", parsed.Global.OutputScale)
	}
	if parsed.Mask.Opacity != Default().Mask.Opacity {
		t.Errorf("missing mask opacity not defaulted: %v", parsed.Mask.Opacity)
	}
}

func TestParseSubstitutesOutOfRange(t *testing.T) {
	parsed, issues, err := Parse([]byte(`{
		"mask": {"opacity": 7},
		"trajectory": {"mode": "bogus"},
		"time_label": {"color": "chartreuse"}
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.Mask.Opacity != 0.5 {
		t.Errorf("opacity = %v, want default 0.5", parsed.Mask.Opacity)
	}
	if parsed.Trajectory.Mode != "full" {
		t.Errorf("mode = %q, want full", parsed.Trajectory.Mode)
	}
	if parsed.TimeLabel.Color != "white" {
		t.Errorf("color = %q, want white", parsed.TimeLabel.Color)
	}

	fields := map[string]bool{}
	for _, issue := range issues {
		fields[issue.Field] = true
	}
	for _, want := range []string{"mask.opacity", "trajectory.mode", "time_label.color"} {
		if !fields[want] {
			t.Errorf("missing issue for %s (got %v)", want, issues)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	if _, _, err := Parse([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestValidateNonFinite(t *testing.T) {
	cfg := Default()
	cfg.Colorbar.VMax = math.NaN()
	cfg.TimeLabel.Anchor = Anchor{X: math.Inf(1), Y: 0}

	issues := cfg.Validate()
	if cfg.Colorbar.VMax != 100 {
		t.Errorf("vmax = %v, want default 100", cfg.Colorbar.VMax)
	}
	if !cfg.TimeLabel.Anchor.IsAuto() {
		t.Errorf("non-finite anchor not reset: %+v", cfg.TimeLabel.Anchor)
	}
	if len(issues) != 2 {
		t.Errorf("got %d issues, want 2: %v", len(issues), issues)
	}
}

func TestValidateVMaxBelowVMin(t *testing.T) {
	cfg := Default()
	cfg.Colorbar.VMin = 50
	cfg.Colorbar.VMax = 10

	cfg.Validate()
	if cfg.Colorbar.VMax < cfg.Colorbar.VMin {
		t.Errorf("range still inverted: [%v, %v]", cfg.Colorbar.VMin, cfg.Colorbar.VMax)
	}
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical configs have different fingerprints")
	}
	b.Mask.Opacity = 0.6
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("changed config kept the same fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("fingerprint length %d, want 64 hex chars", len(a.Fingerprint()))
	}
}

func TestSpeedRatioText(t *testing.T) {
	tests := []struct {
		original, output float64
		want             string
	}{
		{1, 30, "30x"},
		{10, 15, "1.5x"},
		{30, 15, "0.50x"},
		{2, 2, "1x"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Global.OriginalFPS = tt.original
		cfg.Global.OutputFPS = tt.output
		if got := cfg.SpeedRatioText(); got != tt.want {
			t.Errorf("SpeedRatioText(%v/%v) = %q, want %q", tt.output, tt.original, got, tt.want)
		}
	}
}

func TestAnchorAuto(t *testing.T) {
	if !AutoAnchor().IsAuto() {
		t.Error("AutoAnchor should be automatic")
	}
	if (Anchor{X: 10, Y: 20}).IsAuto() {
		t.Error("explicit anchor reported as automatic")
	}
	if !(Anchor{X: -1, Y: 20}).IsAuto() {
		t.Error("negative coordinate should mean automatic")
	}
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Field: "mask.opacity", Reason: "value 7 outside [0, 1]", Applied: 0.5}
	s := issue.String()
	if !strings.Contains(s, "mask.opacity") || !strings.Contains(s, "0.5") {
		t.Errorf("unhelpful issue string: %q", s)
	}
}
