// Package orchestrator drives the iterating thinker↔tool loop: build
// state, ask the thinker for the next step, execute one catalog probe or
// emit an answer, append evidence, maybe learn facts. Grounded on the
// teacher's IteratingController.Run loop, generalized from a multi-turn
// LLM tool-calling conversation to a fixed read-only probe catalog.
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/evidence"
)

// renderCatalog produces the tool-catalog text block the thinker sees
// each iteration: one line per known probe.
func renderCatalog(reg *catalog.Registry) string {
	var b strings.Builder
	for _, spec := range reg.All() {
		fmt.Fprintf(&b, "%s (%s, %s): %s\n", spec.ToolID, spec.Kind, spec.Freshness, spec.Description)
	}
	return b.String()
}

// renderEvidence produces the evidence text block the thinker sees each
// iteration: ids, sources, descriptions, and truncated content.
func renderEvidence(store *evidence.Store) string {
	var b strings.Builder
	for _, e := range store.Iter() {
		fmt.Fprintf(&b, "[%s] source=%s: %s\n%s\n\n", e.ID, e.Source, e.Description, e.Content)
	}
	return b.String()
}
