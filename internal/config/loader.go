package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names read by Load.
const (
	EnvPrefix     = "RALLY_"
	EnvConfigFile = "RALLY_CONFIG"
)

type loadOptions struct {
	envFile string
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithEnvFile sets the dotenv file read before the environment. An empty
// path skips it.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if RALLY_CONFIG is set
//  3. env (prefix RALLY_), including variables from an optional .env file
//
// Variables already set in the process environment win over the .env file.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, o.envFile, err)
		}
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// RALLY_QUEUE_SIZE -> queue_size. Keys are flat so underscores stay.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
