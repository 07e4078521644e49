// Package presenter builds the structured answer record the orchestrator
// hands to the front-end. The core never emits emoji or box-drawing; the
// front-end decorates.
package presenter

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/annad/pkg/reliability"
)

// Record is the structured answer record crossing the IPC boundary.
type Record struct {
	Text             string              `json:"text"`
	Reliability      float64             `json:"reliability"`
	Label            reliability.Label   `json:"label"`
	EvidenceIDsCited []string            `json:"evidence_ids_cited"`
}

// Input bundles the pieces needed to render a Record.
type Input struct {
	Summary      string
	Details      string
	NextSteps    []string
	Reliability  float64
	Label        reliability.Label
	EvidenceRefs []string
}

// Build renders a plain-ASCII, section-tagged Record from in. Sections
// present: [SUMMARY] always; [DETAILS], [EVIDENCE], [NEXT STEPS]
// optionally.
func Build(in Input) Record {
	var b strings.Builder
	fmt.Fprintf(&b, "[SUMMARY]\n%s\n", in.Summary)
	if in.Details != "" {
		fmt.Fprintf(&b, "\n[DETAILS]\n%s\n", in.Details)
	}
	if len(in.EvidenceRefs) > 0 {
		fmt.Fprintf(&b, "\n[EVIDENCE]\n%s\n", strings.Join(in.EvidenceRefs, ", "))
	}
	fmt.Fprintf(&b, "\n[RELIABILITY]\n%.2f (%s)\n", in.Reliability, in.Label)
	if len(in.NextSteps) > 0 {
		fmt.Fprintf(&b, "\n[NEXT STEPS]\n- %s\n", strings.Join(in.NextSteps, "\n- "))
	}

	return Record{
		Text:             b.String(),
		Reliability:      in.Reliability,
		Label:            in.Label,
		EvidenceIDsCited: in.EvidenceRefs,
	}
}
