// Package facts implements the learned-fact cache: a long-lived, host-wide
// overlay on the evidence store that survives across sessions and is
// invalidated by host-change signals.
package facts

import (
	"time"

	"github.com/codeready-toolchain/annad/pkg/catalog"
)

// LearnedFact is a single piece of structured system knowledge, at most
// one of which may be current per category.
type LearnedFact struct {
	Category       string          `json:"category"`
	Value          string          `json:"value"`
	Evidence       string          `json:"evidence"`
	LearnedAt      time.Time       `json:"learned_at"`
	FreshnessClass catalog.Freshness `json:"freshness_class"`
	LastVerifiedAt time.Time       `json:"last_verified_at"`
	SchemaVersion  int             `json:"schema_version"`
}

// HostSignals are the two host-change detectors that gate invalidation of
// slow/volatile facts.
type HostSignals struct {
	BootID          string    `json:"boot_id"`
	PacmanLogMTime  time.Time `json:"pacman_log_mtime"`
	SchemaVersion   int       `json:"schema_version"`
}

// Changed reports whether either signal differs from prev.
func (h HostSignals) Changed(prev HostSignals) bool {
	return h.BootID != prev.BootID || !h.PacmanLogMTime.Equal(prev.PacmanLogMTime)
}
