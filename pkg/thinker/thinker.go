package thinker

import (
	"context"
	"errors"
)

// Errors surfaced by a Thinker implementation. These map directly onto
// the ThinkerError kind taxonomy: the orchestrator retries once on any of
// them before falling through to the deterministic fallback.
var (
	ErrUnreachable       = errors.New("thinker unreachable")
	ErrMalformedResponse = errors.New("thinker returned a malformed response")
	ErrSchemaViolation   = errors.New("thinker response violated the output schema")
	ErrEmpty             = errors.New("thinker returned an empty response")
)

// State is everything the thinker needs to propose the next step: the
// original query, the current iteration number, the full evidence list so
// far (rendered by the caller), and the catalog it may select from.
type State struct {
	Query         string
	Iteration     int
	EvidenceText  string
	CatalogText   string
}

// Thinker is the single polymorphic provider of ask(state) -> Step. Kept
// to one method so alternate implementations (HTTP, a deterministic test
// provider) can be swapped without touching the orchestrator.
type Thinker interface {
	Ask(ctx context.Context, state State) (Step, error)
}
