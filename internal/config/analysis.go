// Package config loads analysis parameters from JSON. Fields are
// pointers so a partial config file only overrides what it names;
// getters supply the defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults for the stage detection and simplification parameters.
const (
	DefaultControlSpeedKMH          = 0.5
	DefaultMinControlTimeMinutes    = 5.0
	DefaultResumptionDistanceMetres = 100.0
	DefaultSimplifyMetres           = 0.0 // simplification off
	DefaultDBPath                   = "rides.db"
)

// AnalysisConfig is the root configuration. The schema matches the CLI
// flags so a config file and flags can express the same settings; flags
// win when both are given.
type AnalysisConfig struct {
	// Simplification tolerance in metres. Zero disables simplification.
	SimplifyMetres *float64 `json:"simplify_metres,omitempty"`

	// Stage detection params
	ControlSpeedKMH          *float64 `json:"control_speed_kmh,omitempty"`
	MinControlTimeMinutes    *float64 `json:"min_control_time_minutes,omitempty"`
	ResumptionDistanceMetres *float64 `json:"resumption_distance_metres,omitempty"`

	// Geocoding params
	Countries     []string `json:"countries,omitempty"`
	CacheDir      *string  `json:"cache_dir,omitempty"`
	ForceDownload *bool    `json:"force_download,omitempty"`

	// Output params
	DBPath *string `json:"db_path,omitempty"`
	Chart  *bool   `json:"chart,omitempty"`
}

// Empty returns an AnalysisConfig with all fields unset.
func Empty() *AnalysisConfig {
	return &AnalysisConfig{}
}

// Load reads an AnalysisConfig from a JSON file. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func Load(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that every set field carries a usable value.
func (c *AnalysisConfig) Validate() error {
	if c.SimplifyMetres != nil && *c.SimplifyMetres < 0 {
		return fmt.Errorf("simplify_metres must not be negative, got %f", *c.SimplifyMetres)
	}
	if c.ControlSpeedKMH != nil && *c.ControlSpeedKMH <= 0 {
		return fmt.Errorf("control_speed_kmh must be positive, got %f", *c.ControlSpeedKMH)
	}
	if c.MinControlTimeMinutes != nil && *c.MinControlTimeMinutes <= 0 {
		return fmt.Errorf("min_control_time_minutes must be positive, got %f", *c.MinControlTimeMinutes)
	}
	if c.ResumptionDistanceMetres != nil && *c.ResumptionDistanceMetres <= 0 {
		return fmt.Errorf("resumption_distance_metres must be positive, got %f", *c.ResumptionDistanceMetres)
	}
	for _, iso := range c.Countries {
		if len(iso) != 2 {
			return fmt.Errorf("countries must be two-letter ISO codes, got %q", iso)
		}
	}
	return nil
}

// GetSimplifyMetres returns the simplification tolerance or the default.
func (c *AnalysisConfig) GetSimplifyMetres() float64 {
	if c.SimplifyMetres != nil {
		return *c.SimplifyMetres
	}
	return DefaultSimplifyMetres
}

// GetControlSpeedKMH returns the control speed threshold or the default.
func (c *AnalysisConfig) GetControlSpeedKMH() float64 {
	if c.ControlSpeedKMH != nil {
		return *c.ControlSpeedKMH
	}
	return DefaultControlSpeedKMH
}

// GetMinControlTime returns the minimum control duration or the default.
func (c *AnalysisConfig) GetMinControlTime() time.Duration {
	minutes := DefaultMinControlTimeMinutes
	if c.MinControlTimeMinutes != nil {
		minutes = *c.MinControlTimeMinutes
	}
	return time.Duration(minutes * float64(time.Minute))
}

// GetResumptionDistanceMetres returns the control resumption distance
// or the default.
func (c *AnalysisConfig) GetResumptionDistanceMetres() float64 {
	if c.ResumptionDistanceMetres != nil {
		return *c.ResumptionDistanceMetres
	}
	return DefaultResumptionDistanceMetres
}

// GetCacheDir returns the gazetteer cache directory, defaulting to a
// per-user cache location. Empty disables geocoding.
func (c *AnalysisConfig) GetCacheDir() string {
	if c.CacheDir != nil {
		return *c.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "ride.report", "geonames")
}

// GetForceDownload returns whether cached gazetteer artifacts should be
// refreshed.
func (c *AnalysisConfig) GetForceDownload() bool {
	if c.ForceDownload != nil {
		return *c.ForceDownload
	}
	return false
}

// GetDBPath returns the ride database path or the default. Empty
// disables persistence.
func (c *AnalysisConfig) GetDBPath() string {
	if c.DBPath != nil {
		return *c.DBPath
	}
	return DefaultDBPath
}

// GetChart returns whether to emit the HTML profile chart.
func (c *AnalysisConfig) GetChart() bool {
	if c.Chart != nil {
		return *c.Chart
	}
	return false
}
