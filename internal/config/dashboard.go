package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DashboardConfig holds optional presentation settings for the exploration
// dashboard, loaded from a YAML file.
type DashboardConfig struct {
	// Title shown in the page header.
	Title string `yaml:"title"`
	// SampleLimit caps the number of rows served to each column chart.
	SampleLimit int `yaml:"sample_limit"`
	// HiddenColumns are excluded from the dashboard entirely.
	HiddenColumns []string `yaml:"hidden_columns"`
}

// DefaultDashboardConfig returns the settings used when no file is given.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Title:       "Data Explorer",
		SampleLimit: 5000,
	}
}

// LoadDashboardConfig reads a DashboardConfig from a YAML file. An empty
// path returns the defaults; unset fields fall back to their defaults.
func LoadDashboardConfig(path string) (DashboardConfig, error) {
	cfg := DefaultDashboardConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return cfg, fmt.Errorf("read dashboard config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse dashboard config %s: %w", path, err)
	}
	if cfg.Title == "" {
		cfg.Title = "Data Explorer"
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 5000
	}
	return cfg, nil
}

// Hidden reports whether the named column is excluded from the dashboard.
func (d DashboardConfig) Hidden(column string) bool {
	for _, h := range d.HiddenColumns {
		if h == column {
			return true
		}
	}
	return false
}
