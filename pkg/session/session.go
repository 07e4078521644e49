// Package session implements the per-request Session: the sole mutator of
// its own evidence list, carrying the query text, the initial telemetry,
// the iteration counter, and a reference to the tool catalog.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/evidence"
)

// Kind distinguishes an interactive session (part of a back-and-forth)
// from a one_shot query.
type Kind string

const (
	KindInteractive Kind = "interactive"
	KindOneShot     Kind = "one_shot"
)

// Session owns the query, the evidence list, and the iteration count for
// one client request. It is never shared across requests and carries no
// mutation authority of its own — that belongs to the safety gate.
type Session struct {
	CorrelationID string
	Query         string
	Kind          Kind
	Catalog       *catalog.Registry
	Evidence      *evidence.Store

	// MatchedRecipeID is the recipe id FindByIntent matched before
	// probing began, if any; empty when no recipe matched. The
	// orchestrator reads it at finalize time to decide between
	// RecordReuse, RecordMismatch, and creating a brand-new recipe.
	MatchedRecipeID string

	StartedAt  time.Time
	FinishedAt time.Time

	iteration    int
	maxIteration int

	retries   int
	fallbacks int
}

// New creates a Session with a fresh correlation id and an empty evidence
// store bounded by maxEvidence/maxContent, and an iteration cap of
// maxIteration.
func New(query string, kind Kind, cat *catalog.Registry, maxEvidence, maxContent, maxIteration int) *Session {
	return &Session{
		CorrelationID: uuid.New().String(),
		Query:         query,
		Kind:          kind,
		Catalog:       cat,
		Evidence:      evidence.NewStore(maxEvidence, maxContent),
		StartedAt:     time.Now(),
		maxIteration:  maxIteration,
	}
}

// Iteration returns the current iteration number: 0 before the first
// AdvanceIteration, 1 during the first loop pass.
func (s *Session) Iteration() int { return s.iteration }

// MaxIteration returns the configured iteration cap.
func (s *Session) MaxIteration() int { return s.maxIteration }

// AdvanceIteration increments the iteration counter and reports whether
// the cap has now been reached or exceeded.
func (s *Session) AdvanceIteration() (exhausted bool) {
	s.iteration++
	return s.iteration >= s.maxIteration
}

// RecordRetry increments the retry counter used by the
// reliability scorer's per-retry penalty.
func (s *Session) RecordRetry() { s.retries++ }

// RecordFallback increments the fallback-invocation counter.
func (s *Session) RecordFallback() { s.fallbacks++ }

// RetryCount and FallbackCount expose the counters to the scorer.
func (s *Session) RetryCount() int    { return s.retries }
func (s *Session) FallbackCount() int { return s.fallbacks }

// Finish marks the session complete.
func (s *Session) Finish() {
	s.FinishedAt = time.Now()
}

// Duration returns the elapsed session time; zero if not yet finished.
func (s *Session) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
