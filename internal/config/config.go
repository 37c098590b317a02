// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the asynchronous game queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many game ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxHistory caps the game records kept in memory; 0 keeps all.
	MaxHistory int `koanf:"max_history"`

	// MaxStandingsLimit caps GET /standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// DataPath is a JSONL file imported at start and written at shutdown.
	DataPath string `koanf:"data_path"`

	// Team optimizer.
	TeamSize          int     `koanf:"team_size"`
	Iterations        int     `koanf:"iterations"`
	OptimizerStrategy string  `koanf:"optimizer_strategy"`
	Perturbation      float64 `koanf:"perturbation"`
	Seed              int64   `koanf:"seed"`

	// Scheduler.
	RoundsCap            int `koanf:"rounds_cap"`
	IntegratedIterations int `koanf:"integrated_iterations"`

	// Rating update.
	RatingStrategy string  `koanf:"rating_strategy"`
	ModelPath      string  `koanf:"model_path"`
	Beta           float64 `koanf:"beta"`
	BaseFactor     float64 `koanf:"base_factor"`
	SigmaReference float64 `koanf:"sigma_reference"`
	SigmaFloor     float64 `koanf:"sigma_floor"`
	SigmaDecay     float64 `koanf:"sigma_decay"`

	// QualityCloseness is the team rating gap at which predicted quality
	// halves.
	QualityCloseness float64 `koanf:"quality_closeness"`

	// Chemistry.
	ChemistryEnabled bool    `koanf:"chemistry_enabled"`
	ChemistryWeight  float64 `koanf:"chemistry_weight"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            1024,
		DedupeSize:           50_000,
		MaxHistory:           0,
		MaxStandingsLimit:    100,
		TeamSize:             6,
		Iterations:           200,
		OptimizerStrategy:    "hillclimb",
		Perturbation:         15,
		RoundsCap:            32,
		IntegratedIterations: 10,
		RatingStrategy:       "statistical",
		Beta:                 100,
		BaseFactor:           20,
		SigmaReference:       100,
		QualityCloseness:     37.5,
		SigmaFloor:           10,
		SigmaDecay:           0.95,
		ChemistryEnabled:     false,
		ChemistryWeight:      1.0,
	}
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(oneOf(c.LogLevel, "debug", "info", "warn", "warning", "error"), "unknown log_level %q", c.LogLevel)
	check(oneOf(c.LogFormat, "text", "json"), "unknown log_format %q", c.LogFormat)
	check(c.QueueSize > 0, "queue_size must be positive, got %d", c.QueueSize)
	check(c.DedupeSize > 0, "dedupe_size must be positive, got %d", c.DedupeSize)
	check(c.MaxHistory >= 0, "max_history must not be negative, got %d", c.MaxHistory)
	check(c.MaxStandingsLimit > 0, "max_standings_limit must be positive, got %d", c.MaxStandingsLimit)
	check(c.TeamSize > 0, "team_size must be positive, got %d", c.TeamSize)
	check(c.Iterations > 0, "iterations must be positive, got %d", c.Iterations)
	check(oneOf(c.OptimizerStrategy, "snake", "hillclimb", "anneal"), "unknown optimizer_strategy %q", c.OptimizerStrategy)
	check(c.Perturbation >= 0, "perturbation must not be negative, got %g", c.Perturbation)
	check(c.RoundsCap > 0, "rounds_cap must be positive, got %d", c.RoundsCap)
	check(c.IntegratedIterations > 0, "integrated_iterations must be positive, got %d", c.IntegratedIterations)
	check(oneOf(c.RatingStrategy, "statistical", "learned"), "unknown rating_strategy %q", c.RatingStrategy)
	check(c.Beta > 0, "beta must be positive, got %g", c.Beta)
	check(c.BaseFactor > 0, "base_factor must be positive, got %g", c.BaseFactor)
	check(c.SigmaReference > 0, "sigma_reference must be positive, got %g", c.SigmaReference)
	check(c.QualityCloseness > 0, "quality_closeness must be positive, got %g", c.QualityCloseness)
	check(c.SigmaFloor > 0, "sigma_floor must be positive, got %g", c.SigmaFloor)
	check(c.SigmaDecay > 0 && c.SigmaDecay <= 1, "sigma_decay must be in (0, 1], got %g", c.SigmaDecay)
	check(c.ChemistryWeight >= 0, "chemistry_weight must not be negative, got %g", c.ChemistryWeight)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
