package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

func TestAutoLoadConfig_Defaults(t *testing.T) {
	cfg := &AutoLoadConfig{}

	if got := cfg.GetThresholdFraction(); got != 0.8 {
		t.Errorf("default threshold_fraction: got %v, want 0.8", got)
	}
	if got := cfg.GetTimeBufferSeconds(); got != 5 {
		t.Errorf("default time_buffer_seconds: got %v, want 5", got)
	}
	if got := cfg.GetSegmentDurationDays(); got != 365 {
		t.Errorf("default segment_duration_days: got %v, want 365", got)
	}
	if got := cfg.GetSegmentPoints(); got != 100 {
		t.Errorf("default segment_points: got %v, want 100", got)
	}
	if got := cfg.GetMaxPoints(); got != 10000 {
		t.Errorf("default max_points: got %v, want 10000", got)
	}
	if got := cfg.GetFetchTimeout(); got != 30*time.Second {
		t.Errorf("default fetch_timeout: got %v, want 30s", got)
	}
}

func TestAutoLoadConfig_ClampsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		cfg  AutoLoadConfig
		got  func(*AutoLoadConfig) float64
		want float64
	}{
		{"threshold too low", AutoLoadConfig{ThresholdFraction: ptrFloat64(0.1)},
			func(c *AutoLoadConfig) float64 { return c.GetThresholdFraction() }, 0.5},
		{"threshold too high", AutoLoadConfig{ThresholdFraction: ptrFloat64(0.99)},
			func(c *AutoLoadConfig) float64 { return c.GetThresholdFraction() }, 0.95},
		{"time buffer too low", AutoLoadConfig{TimeBufferSeconds: ptrFloat64(0)},
			func(c *AutoLoadConfig) float64 { return c.GetTimeBufferSeconds() }, 1},
		{"time buffer too high", AutoLoadConfig{TimeBufferSeconds: ptrFloat64(60)},
			func(c *AutoLoadConfig) float64 { return c.GetTimeBufferSeconds() }, 15},
		{"segment days too low", AutoLoadConfig{SegmentDurationDays: ptrFloat64(1)},
			func(c *AutoLoadConfig) float64 { return c.GetSegmentDurationDays() }, 30},
		{"segment days too high", AutoLoadConfig{SegmentDurationDays: ptrFloat64(5000)},
			func(c *AutoLoadConfig) float64 { return c.GetSegmentDurationDays() }, 1000},
		{"segment points too low", AutoLoadConfig{SegmentPoints: ptrInt(5)},
			func(c *AutoLoadConfig) float64 { return float64(c.GetSegmentPoints()) }, 50},
		{"max points too high", AutoLoadConfig{MaxPoints: ptrInt(1000000)},
			func(c *AutoLoadConfig) float64 { return float64(c.GetMaxPoints()) }, 50000},
		{"max points too low", AutoLoadConfig{MaxPoints: ptrInt(100)},
			func(c *AutoLoadConfig) float64 { return float64(c.GetMaxPoints()) }, 5000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.got(&tc.cfg); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAutoLoadConfig_InRangeUnchanged(t *testing.T) {
	cfg := AutoLoadConfig{
		ThresholdFraction: ptrFloat64(0.9),
		SegmentPoints:     ptrInt(250),
	}
	if got := cfg.GetThresholdFraction(); got != 0.9 {
		t.Errorf("got %v, want 0.9", got)
	}
	if got := cfg.GetSegmentPoints(); got != 250 {
		t.Errorf("got %v, want 250", got)
	}
}

func TestAutoLoadConfig_Apply(t *testing.T) {
	cfg := &AutoLoadConfig{ThresholdFraction: ptrFloat64(0.7)}
	changed := cfg.Apply(&AutoLoadConfig{
		TimeBufferSeconds: ptrFloat64(10),
		MaxPoints:         ptrInt(20000),
	})
	if changed != 2 {
		t.Errorf("expected 2 fields changed, got %d", changed)
	}
	// untouched field retained
	if got := cfg.GetThresholdFraction(); got != 0.7 {
		t.Errorf("threshold_fraction clobbered by partial update: %v", got)
	}
	if got := cfg.GetMaxPoints(); got != 20000 {
		t.Errorf("got %v, want 20000", got)
	}
}

func TestLoadAutoLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autoload.json")
	content := `{"threshold_fraction": 0.85, "segment_points": 200, "fetch_timeout": "10s"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAutoLoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := cfg.GetThresholdFraction(); got != 0.85 {
		t.Errorf("got %v, want 0.85", got)
	}
	if got := cfg.GetSegmentPoints(); got != 200 {
		t.Errorf("got %v, want 200", got)
	}
	if got := cfg.GetFetchTimeout(); got != 10*time.Second {
		t.Errorf("got %v, want 10s", got)
	}
	// omitted fields keep defaults
	if got := cfg.GetMaxPoints(); got != 10000 {
		t.Errorf("got %v, want default 10000", got)
	}
}

func TestLoadAutoLoadConfig_Errors(t *testing.T) {
	if _, err := LoadAutoLoadConfig("autoload.yaml"); err == nil {
		t.Error("expected error for non-json extension")
	}
	if _, err := LoadAutoLoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"fetch_timeout": "not-a-duration"}`), 0o644)
	if _, err := LoadAutoLoadConfig(bad); err == nil {
		t.Error("expected error for unparseable fetch_timeout")
	}
}

func TestAutoLoadConfig_ServiceURL(t *testing.T) {
	cfg := &AutoLoadConfig{}
	if got := cfg.GetServiceURL(); got != "http://localhost:8000" {
		t.Errorf("unexpected default service URL %q", got)
	}
	cfg.ServiceURL = ptrString("https://trajectories.example.com")
	if got := cfg.GetServiceURL(); got != "https://trajectories.example.com" {
		t.Errorf("got %q", got)
	}
}
