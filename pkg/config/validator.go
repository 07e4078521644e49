package config

import "fmt"

// Validator runs the ordered set of checks against a loaded Config.
type Validator struct {
	cfg *Config
}

// NewValidator constructs a Validator for cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every check in a fixed order and returns the first
// failure, wrapped with component context.
func (v *Validator) ValidateAll() error {
	checks := []func() error{
		v.validatePaths,
		v.validateLimits,
		v.validateReliability,
		v.validateThinker,
		v.validateSafety,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validatePaths() error {
	if v.cfg.StateDir == "" {
		return NewValidationError("config", "state_dir", "", ErrMissingRequiredField)
	}
	if v.cfg.Socket == "" {
		return NewValidationError("config", "socket", "", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateLimits() error {
	l := v.cfg.Limits
	if l.MaxIterations < 1 {
		return NewValidationError("limits", "max_iterations", "", fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, l.MaxIterations))
	}
	if l.OutputCapBytes < 1024 {
		return NewValidationError("limits", "output_cap_bytes", "", fmt.Errorf("%w: must be >= 1024, got %d", ErrInvalidValue, l.OutputCapBytes))
	}
	if l.DefaultToolTO <= 0 {
		return NewValidationError("limits", "default_tool_timeout", "", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if l.HeavyToolTO <= 0 {
		return NewValidationError("limits", "heavy_tool_timeout", "", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if l.HeavyConcurrency < 1 {
		return NewValidationError("limits", "heavy_concurrency", "", fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, l.HeavyConcurrency))
	}
	if l.MaxEvidenceItems < 1 {
		return NewValidationError("limits", "max_evidence_items", "", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateReliability() error {
	r := v.cfg.Reliability
	if !(0 <= r.LowThreshold && r.LowThreshold <= r.MediumThreshold && r.MediumThreshold <= r.HighThreshold && r.HighThreshold <= 1) {
		return NewValidationError("reliability", "thresholds", "", fmt.Errorf("%w: expected 0 <= low <= medium <= high <= 1, got %.2f/%.2f/%.2f", ErrInvalidValue, r.LowThreshold, r.MediumThreshold, r.HighThreshold))
	}
	if !(0 <= r.RecipeDemoteFloor && r.RecipeDemoteFloor <= r.RecipeDraftFloor && r.RecipeDraftFloor <= r.RecipeCreateFloor && r.RecipeCreateFloor <= 1) {
		return NewValidationError("reliability", "recipe_floors", "", fmt.Errorf("%w: expected 0 <= demote <= draft <= create <= 1", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateThinker() error {
	t := v.cfg.Thinker
	if t.Endpoint == "" {
		return NewValidationError("thinker", "endpoint", "", ErrMissingRequiredField)
	}
	if t.Timeout <= 0 {
		return NewValidationError("thinker", "timeout", "", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateSafety() error {
	if v.cfg.Safety.ConfirmTTL <= 0 {
		return NewValidationError("safety", "confirm_ttl", "", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}
