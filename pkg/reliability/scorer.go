// Package reliability implements the reliability scorer: it maps
// evidence-coverage and reality-check agreement to a single score in
// [0,1] and an enumerated label.
package reliability

import (
	"regexp"

	"github.com/codeready-toolchain/annad/pkg/reality"
)

// Label is the enumerated reliability tier presented to the user.
type Label string

const (
	LabelVeryLow Label = "very_low"
	LabelLow     Label = "low"
	LabelMedium  Label = "medium"
	LabelHigh    Label = "high"
)

// Thresholds are the calibrated label boundaries; configuration, not
// invariants.
type Thresholds struct {
	High   float64 // default 0.85
	Medium float64 // default 0.70
	Low    float64 // default 0.40
}

// DefaultThresholds returns the spec's calibration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.85, Medium: 0.70, Low: 0.40}
}

// LabelFor maps a numeric score to its enumerated label.
func (t Thresholds) LabelFor(score float64) Label {
	switch {
	case score >= t.High:
		return LabelHigh
	case score >= t.Medium:
		return LabelMedium
	case score >= t.Low:
		return LabelLow
	default:
		return LabelVeryLow
	}
}

// Input bundles everything the scorer needs.
type Input struct {
	AnswerText     string
	EvidenceRefs   []string
	Check          reality.Result
	RetryCount     int
	FromFallback   bool
	RanOutOfIterations bool
}

var atomicClaimRe = regexp.MustCompile(`[^.!?]+[.!?]`)

// Score computes the reliability score:
//   - start from the reality-check confidence
//   - multiply by an evidence-coverage factor (uncited claims cap at 0.6)
//   - subtract 0.05 per retry counted in RetryCount (fallback invocations
//     carry no penalty of their own)
//   - cap at 0.4 when the answer came from the fallback
//   - cap at 0.2 when the answer is the ran-out-of-iterations template
func Score(in Input) float64 {
	score := in.Check.Confidence

	coverage := evidenceCoverage(in.AnswerText, in.EvidenceRefs)
	score *= coverage
	if coverage < 1.0 && score > 0.6 {
		score = 0.6
	}

	score -= 0.05 * float64(in.RetryCount)

	if in.FromFallback && score > 0.4 {
		score = 0.4
	}
	if in.RanOutOfIterations && score > 0.2 {
		score = 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// evidenceCoverage estimates the fraction of atomic claims (sentences)
// in the answer that carry a cited evidence id, returning 1.0 for an
// empty or single-sentence answer citing at least one id.
func evidenceCoverage(answer string, refs []string) float64 {
	if len(refs) == 0 {
		return 0.5
	}
	sentences := atomicClaimRe.FindAllString(answer, -1)
	if len(sentences) == 0 {
		return 1.0
	}
	// Without per-sentence citation parsing, treat the presence of any
	// citation as covering all sentences up to the cited count, capped at
	// the full sentence count — a conservative middle ground the spec
	// leaves as an implementation detail (no algorithm is named beyond
	// "fraction of atomic claims that carry a cited evidence id").
	covered := len(refs)
	if covered > len(sentences) {
		covered = len(sentences)
	}
	return float64(covered) / float64(len(sentences))
}
