package config

import "time"

// DefaultConfig returns the built-in configuration applied before any
// anna.yaml is merged on top.
func DefaultConfig() *AnnaYAMLConfig {
	return &AnnaYAMLConfig{
		StateDir:   "/var/lib/anna",
		Socket:     "/run/anna/anna.sock",
		HealthAddr: "127.0.0.1:8787",
		Limits: &Limits{
			MaxIterations:    8,
			OutputCapBytes:   64 * 1024,
			DefaultToolTO:    30 * time.Second,
			HeavyToolTO:      120 * time.Second,
			HeavyConcurrency: 1,
			MaxEvidenceItems: 64,
		},
		Reliability: &Reliability{
			HighThreshold:     0.85,
			MediumThreshold:   0.70,
			LowThreshold:      0.40,
			RecipeCreateFloor: 0.80,
			RecipeDraftFloor:  0.50,
			RecipeDemoteFloor: 0.20,
		},
		Thinker: &ThinkerConfig{
			Endpoint: "http://127.0.0.1:11434/v1/anna/ask",
			Timeout:  20 * time.Second,
		},
		Safety: &SafetyConfig{
			ConfirmTTL: 2 * time.Minute,
		},
		Memory: &MemoryConfig{
			StoreRawTranscripts: false,
		},
	}
}
