package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Initialize loads anna.yaml from configDir, merges it over the built-in
// defaults, validates the result, and returns a ready-to-use Config. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load the .env file inside configDir, if present (non-fatal if absent)
//  2. Load anna.yaml from configDir
//  3. Expand environment variables
//  4. Merge user YAML over built-in defaults (user overrides built-in)
//  5. Validate the result
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env file", "error", err)
	}

	yamlCfg, err := loadAnnaYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	merged := DefaultConfig()
	if err := mergo.Merge(merged, yamlCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	cfg := &Config{
		StateDir:    merged.StateDir,
		Socket:      merged.Socket,
		HealthAddr:  merged.HealthAddr,
		Limits:      *merged.Limits,
		Reliability: *merged.Reliability,
		Thinker:     *merged.Thinker,
		Safety:      *merged.Safety,
		Memory:      *merged.Memory,
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"state_dir", cfg.StateDir,
		"max_iterations", cfg.Limits.MaxIterations,
		"thinker_endpoint", cfg.Thinker.Endpoint)

	return cfg, nil
}

func loadAnnaYAML(configDir string) (*AnnaYAMLConfig, error) {
	path := filepath.Join(configDir, "anna.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing anna.yaml is not fatal: the built-in defaults alone
			// are a valid configuration for a first run.
			return &AnnaYAMLConfig{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	data = ExpandEnv(data)

	var cfg AnnaYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}
