package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tern-robotics/episode.report/internal/quality"
)

// TuningConfig holds optional overrides for the quality-heuristics engine.
// All fields are pointers so a config file can set only the knobs it cares
// about; nil fields fall through to the engine defaults. The schema matches
// the /api/evaluate request body so the same JSON works for both startup
// configuration and per-request overrides.
type TuningConfig struct {
	DropThresholdMultiplier *float64 `json:"drop_threshold_multiplier,omitempty"`
	JitterCVThreshold       *float64 `json:"jitter_cv_threshold,omitempty"`
	MaxEpisodes             *int     `json:"max_episodes,omitempty"`
	Workers                 *int     `json:"workers,omitempty"`
}

// LoadTuningConfig reads a tuning file. A missing path returns an empty
// config rather than an error so the binary runs with pure defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	if path == "" {
		return &TuningConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &TuningConfig{}, nil
		}
		return nil, fmt.Errorf("read tuning config: %w", err)
	}
	var cfg TuningConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse tuning config %s: %w", path, err)
	}
	return &cfg, nil
}

// Merge overlays non-nil fields of other onto a copy of c.
func (c *TuningConfig) Merge(other *TuningConfig) *TuningConfig {
	out := *c
	if other == nil {
		return &out
	}
	if other.DropThresholdMultiplier != nil {
		out.DropThresholdMultiplier = other.DropThresholdMultiplier
	}
	if other.JitterCVThreshold != nil {
		out.JitterCVThreshold = other.JitterCVThreshold
	}
	if other.MaxEpisodes != nil {
		out.MaxEpisodes = other.MaxEpisodes
	}
	if other.Workers != nil {
		out.Workers = other.Workers
	}
	return &out
}

// Options converts the config into engine options, leaving zero values where
// the engine should apply its own defaults.
func (c *TuningConfig) Options() quality.Options {
	var opts quality.Options
	if c.DropThresholdMultiplier != nil {
		opts.DropThresholdMultiplier = *c.DropThresholdMultiplier
	}
	if c.JitterCVThreshold != nil {
		opts.JitterCVThreshold = *c.JitterCVThreshold
	}
	if c.MaxEpisodes != nil {
		opts.MaxEpisodes = *c.MaxEpisodes
	}
	if c.Workers != nil {
		opts.Workers = *c.Workers
	}
	return opts
}
