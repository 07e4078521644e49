// Package config loads and validates the daemon's configuration:
// state directories, execution limits, reliability thresholds, and the
// thinker transport. It follows the same load → merge-over-defaults →
// validate pipeline used throughout this codebase, adapted from a
// multi-file YAML layout down to Anna's single anna.yaml.
package config

import "time"

// AnnaYAMLConfig is the parsed shape of anna.yaml.
type AnnaYAMLConfig struct {
	StateDir    string             `yaml:"state_dir"`
	Socket      string             `yaml:"socket"`
	HealthAddr  string             `yaml:"health_addr"`
	Limits      *Limits            `yaml:"limits"`
	Reliability *Reliability       `yaml:"reliability"`
	Thinker     *ThinkerConfig     `yaml:"thinker"`
	Safety      *SafetyConfig      `yaml:"safety"`
	Memory      *MemoryConfig      `yaml:"memory"`
}

// Limits bounds the orchestrator loop and the catalog executor. The
// executor receives only HeavyConcurrency from here: DefaultToolTO and
// HeavyToolTO are validated but not applied to it, since it runs with
// catalog.DefaultTimeout and catalog.HeavyTimeout.
type Limits struct {
	MaxIterations     int           `yaml:"max_iterations"`
	OutputCapBytes    int           `yaml:"output_cap_bytes"`
	DefaultToolTO     time.Duration `yaml:"default_tool_timeout"`
	HeavyToolTO       time.Duration `yaml:"heavy_tool_timeout"`
	HeavyConcurrency  int           `yaml:"heavy_concurrency"`
	MaxEvidenceItems  int           `yaml:"max_evidence_items"`
}

// Reliability carries the calibrated thresholds and recipe-lifecycle
// floors; these are configuration defaults, not invariants.
type Reliability struct {
	HighThreshold    float64 `yaml:"high_threshold"`
	MediumThreshold  float64 `yaml:"medium_threshold"`
	LowThreshold     float64 `yaml:"low_threshold"`
	RecipeCreateFloor float64 `yaml:"recipe_create_floor"`
	RecipeDraftFloor  float64 `yaml:"recipe_draft_floor"`
	RecipeDemoteFloor float64 `yaml:"recipe_demote_floor"`
}

// ThinkerConfig points at the HTTP+JSON language-model endpoint.
type ThinkerConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SafetyConfig bounds the phrase-confirmation window.
type SafetyConfig struct {
	ConfirmTTL time.Duration `yaml:"confirm_ttl"`
}

// MemoryConfig controls the privacy scope of the session store.
type MemoryConfig struct {
	StoreRawTranscripts bool `yaml:"store_raw_transcripts"`
}

// Config is the umbrella object returned by Initialize and threaded
// through the daemon.
type Config struct {
	StateDir    string
	Socket      string
	HealthAddr  string
	Limits      Limits
	Reliability Reliability
	Thinker     ThinkerConfig
	Safety      SafetyConfig
	Memory      MemoryConfig
}
