// Package config holds the runtime tuning configuration for trajectory
// auto-loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical auto-load defaults file.
const DefaultConfigPath = "config/autoload.defaults.json"

// AutoLoadConfig represents the tuning parameters for trajectory
// auto-loading. The schema matches the /api/trajectory/params endpoint so
// the same JSON serves both startup configuration and runtime updates.
// All fields are optional; the Get* methods supply defaults, and values
// outside their documented range are clamped rather than rejected.
type AutoLoadConfig struct {
	// Fraction of the loaded trajectory the playback index must pass
	// before the next segment is requested. Range 0.5-0.95.
	ThresholdFraction *float64 `json:"threshold_fraction,omitempty"`

	// Remaining playback time (seconds) below which the next segment is
	// requested. Range 1-15.
	TimeBufferSeconds *float64 `json:"time_buffer_seconds,omitempty"`

	// Span of each auto-loaded segment in days. Range 30-1000.
	SegmentDurationDays *float64 `json:"segment_duration_days,omitempty"`

	// Number of samples per auto-loaded segment. Range 50-500.
	SegmentPoints *int `json:"segment_points,omitempty"`

	// Sliding-window cap on stored samples per trajectory. Range 5000-50000.
	MaxPoints *int `json:"max_points,omitempty"`

	// Service params
	ServiceURL   *string `json:"service_url,omitempty"`
	FetchTimeout *string `json:"fetch_timeout,omitempty"` // duration string like "30s"
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadAutoLoadConfig loads an AutoLoadConfig from a JSON file. Fields
// omitted from the file retain their defaults, so partial configs are safe.
func LoadAutoLoadConfig(path string) (*AutoLoadConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AutoLoadConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if cfg.FetchTimeout != nil && *cfg.FetchTimeout != "" {
		if _, err := time.ParseDuration(*cfg.FetchTimeout); err != nil {
			return nil, fmt.Errorf("invalid fetch_timeout %q: %w", *cfg.FetchTimeout, err)
		}
	}

	return cfg, nil
}

// Apply merges non-nil fields from update into c. It returns the number of
// fields changed. Merging never touches trajectory data; already-loaded
// samples survive any reconfiguration.
func (c *AutoLoadConfig) Apply(update *AutoLoadConfig) int {
	changed := 0
	if update.ThresholdFraction != nil {
		c.ThresholdFraction = update.ThresholdFraction
		changed++
	}
	if update.TimeBufferSeconds != nil {
		c.TimeBufferSeconds = update.TimeBufferSeconds
		changed++
	}
	if update.SegmentDurationDays != nil {
		c.SegmentDurationDays = update.SegmentDurationDays
		changed++
	}
	if update.SegmentPoints != nil {
		c.SegmentPoints = update.SegmentPoints
		changed++
	}
	if update.MaxPoints != nil {
		c.MaxPoints = update.MaxPoints
		changed++
	}
	if update.ServiceURL != nil {
		c.ServiceURL = update.ServiceURL
		changed++
	}
	if update.FetchTimeout != nil {
		c.FetchTimeout = update.FetchTimeout
		changed++
	}
	return changed
}

// GetThresholdFraction returns the threshold_fraction value clamped to
// [0.5, 0.95], or the default 0.8.
func (c *AutoLoadConfig) GetThresholdFraction() float64 {
	if c.ThresholdFraction == nil {
		return 0.8
	}
	return clampFloat(*c.ThresholdFraction, 0.5, 0.95)
}

// GetTimeBufferSeconds returns the time_buffer_seconds value clamped to
// [1, 15], or the default 5.
func (c *AutoLoadConfig) GetTimeBufferSeconds() float64 {
	if c.TimeBufferSeconds == nil {
		return 5
	}
	return clampFloat(*c.TimeBufferSeconds, 1, 15)
}

// GetSegmentDurationDays returns the segment_duration_days value clamped to
// [30, 1000], or the default 365.
func (c *AutoLoadConfig) GetSegmentDurationDays() float64 {
	if c.SegmentDurationDays == nil {
		return 365
	}
	return clampFloat(*c.SegmentDurationDays, 30, 1000)
}

// GetSegmentPoints returns the segment_points value clamped to [50, 500],
// or the default 100.
func (c *AutoLoadConfig) GetSegmentPoints() int {
	if c.SegmentPoints == nil {
		return 100
	}
	return clampInt(*c.SegmentPoints, 50, 500)
}

// GetMaxPoints returns the max_points value clamped to [5000, 50000], or
// the default 10000.
func (c *AutoLoadConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return 10000
	}
	return clampInt(*c.MaxPoints, 5000, 50000)
}

// GetServiceURL returns the trajectory service base URL or the default.
func (c *AutoLoadConfig) GetServiceURL() string {
	if c.ServiceURL == nil || *c.ServiceURL == "" {
		return "http://localhost:8000"
	}
	return *c.ServiceURL
}

// GetFetchTimeout parses and returns the fetch_timeout as a time.Duration.
func (c *AutoLoadConfig) GetFetchTimeout() time.Duration {
	if c.FetchTimeout == nil || *c.FetchTimeout == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FetchTimeout)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}
