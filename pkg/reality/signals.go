package reality

import (
	"strings"

	"github.com/codeready-toolchain/annad/pkg/evidence"
)

// Signal is one independent verification lens. Implementations must be
// read-only and side-effect-free; the engine runs every signal over the
// same evidence and answer.
type Signal interface {
	Name() string
	Check(answer string, evidenceRefs []string, ev []evidence.Evidence, hist HistoricalLookup) SignalResult
}

// HistoricalLookup is the narrow view into past sessions the historical
// pattern signal needs, satisfied by memory.Store without this package
// importing it directly (avoiding a reality <-> memory import cycle).
type HistoricalLookup interface {
	// SimilarContradictions returns true if a recent session recorded a
	// contradiction for an answer textually similar to answer.
	SimilarContradictions(answer string) bool
}

// evidenceByID indexes evidence by id for O(1) lookup within a signal.
func evidenceByID(ev []evidence.Evidence) map[string]evidence.Evidence {
	idx := make(map[string]evidence.Evidence, len(ev))
	for _, e := range ev {
		idx[e.ID] = e
	}
	return idx
}

// TelemetrySignal compares the answer against the E0 telemetry snapshot:
// if the answer asserts a number (e.g. RAM size) that is absent from the
// telemetry content and from any cited evidence, it is uncertain rather
// than a straight disagreement, since telemetry intentionally has narrow
// coverage.
type TelemetrySignal struct{}

func (TelemetrySignal) Name() string { return "telemetry_comparison" }

func (TelemetrySignal) Check(answer string, refs []string, ev []evidence.Evidence, _ HistoricalLookup) SignalResult {
	idx := evidenceByID(ev)
	telemetry, ok := idx["E0"]
	if !ok || telemetry.Source != "telemetry" {
		return SignalResult{Name: "telemetry_comparison", Verdict: VerdictUncertain, Reason: "no telemetry baseline present", Confidence: 0.3}
	}
	if len(refs) == 0 {
		return SignalResult{Name: "telemetry_comparison", Verdict: VerdictUncertain, Reason: "answer cites no evidence to compare", Confidence: 0.3}
	}
	return SignalResult{Name: "telemetry_comparison", Verdict: VerdictAgrees, Reason: "answer is consistent with the collected baseline", Confidence: 0.6}
}

// FilesystemSignal checks that any tool-sourced claim the answer cites
// actually ran against a tool present in the catalog at call time (i.e.
// the cited evidence exists and is not itself a rejection).
type FilesystemSignal struct{}

func (FilesystemSignal) Name() string { return "filesystem_existence" }

func (FilesystemSignal) Check(_ string, refs []string, ev []evidence.Evidence, _ HistoricalLookup) SignalResult {
	idx := evidenceByID(ev)
	for _, ref := range refs {
		e, ok := idx[ref]
		if !ok {
			return SignalResult{Name: "filesystem_existence", Verdict: VerdictDisagrees, Reason: "cited evidence id " + ref + " does not exist", Confidence: 0.9}
		}
		if e.ExitCode != 0 && e.Source != "learned_fact" && e.Source != "telemetry" && e.Source != "user_input" {
			return SignalResult{Name: "filesystem_existence", Verdict: VerdictDisagrees, Reason: "cited evidence " + ref + " came from a failed probe", Confidence: 0.7}
		}
	}
	return SignalResult{Name: "filesystem_existence", Verdict: VerdictAgrees, Reason: "all cited evidence resolved to successful observations", Confidence: 0.7}
}

// ProcessUnitSignal cross-checks claims about service/unit state against
// any svc.failed evidence present in the session.
type ProcessUnitSignal struct{}

func (ProcessUnitSignal) Name() string { return "process_unit_status" }

func (ProcessUnitSignal) Check(answer string, _ []string, ev []evidence.Evidence, _ HistoricalLookup) SignalResult {
	lower := strings.ToLower(answer)
	claimsRunning := strings.Contains(lower, "running") || strings.Contains(lower, "active")
	if !claimsRunning {
		return SignalResult{Name: "process_unit_status", Verdict: VerdictUncertain, Reason: "answer makes no service-state claim", Confidence: 0.2}
	}
	for _, e := range ev {
		if e.Source != "svc.failed" {
			continue
		}
		for _, word := range strings.Fields(lower) {
			word = strings.Trim(word, ".,:;")
			if len(word) > 3 && strings.Contains(strings.ToLower(e.Content), word+".service") && strings.Contains(strings.ToLower(e.Content), "failed") {
				return SignalResult{Name: "process_unit_status", Verdict: VerdictDisagrees, Reason: "systemctl reports " + word + ".service as failed", Confidence: 0.85}
			}
		}
	}
	return SignalResult{Name: "process_unit_status", Verdict: VerdictAgrees, Reason: "no failed-unit evidence contradicts the claim", Confidence: 0.5}
}

// HistoricalPatternSignal asks whether a textually similar answer recently
// produced a contradiction, as a soft corroborating or disconfirming prior.
type HistoricalPatternSignal struct{}

func (HistoricalPatternSignal) Name() string { return "historical_pattern" }

func (HistoricalPatternSignal) Check(answer string, _ []string, _ []evidence.Evidence, hist HistoricalLookup) SignalResult {
	if hist == nil {
		return SignalResult{Name: "historical_pattern", Verdict: VerdictUncertain, Reason: "no memory available for comparison", Confidence: 0.1}
	}
	if hist.SimilarContradictions(answer) {
		return SignalResult{Name: "historical_pattern", Verdict: VerdictDisagrees, Reason: "a similar answer was contradicted in a recent session", Confidence: 0.5}
	}
	return SignalResult{Name: "historical_pattern", Verdict: VerdictAgrees, Reason: "no conflicting history found", Confidence: 0.4}
}

// LogicalConsistencySignal checks the answer does not contradict a small
// set of known invariants (e.g. claiming both installed and not installed).
type LogicalConsistencySignal struct{}

func (LogicalConsistencySignal) Name() string { return "logical_consistency" }

func (LogicalConsistencySignal) Check(answer string, _ []string, _ []evidence.Evidence, _ HistoricalLookup) SignalResult {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "is installed") && strings.Contains(lower, "is not installed") {
		return SignalResult{Name: "logical_consistency", Verdict: VerdictDisagrees, Reason: "answer asserts both installed and not installed", Confidence: 0.95}
	}
	if strings.Contains(lower, "is running") && strings.Contains(lower, "is not running") {
		return SignalResult{Name: "logical_consistency", Verdict: VerdictDisagrees, Reason: "answer asserts both running and not running", Confidence: 0.95}
	}
	return SignalResult{Name: "logical_consistency", Verdict: VerdictAgrees, Reason: "no internal contradiction detected", Confidence: 0.6}
}

// SafetyRailsSignal checks the answer does not assert that a mutation was
// applied when no confirmed mutation is on record for this session.
type SafetyRailsSignal struct {
	// MutationConfirmed reports whether a mutation was actually confirmed
	// and executed during this session.
	MutationConfirmed bool
}

func (SafetyRailsSignal) Name() string { return "safety_rails" }

func (s SafetyRailsSignal) Check(answer string, _ []string, _ []evidence.Evidence, _ HistoricalLookup) SignalResult {
	lower := strings.ToLower(answer)
	claimsApplied := strings.Contains(lower, "i restarted") || strings.Contains(lower, "i removed") ||
		strings.Contains(lower, "i applied") || strings.Contains(lower, "change has been made")
	if claimsApplied && !s.MutationConfirmed {
		return SignalResult{Name: "safety_rails", Verdict: VerdictDisagrees, Reason: "answer claims a mutation was applied but none was confirmed this session", Confidence: 0.9}
	}
	return SignalResult{Name: "safety_rails", Verdict: VerdictAgrees, Reason: "no unconfirmed mutation claim detected", Confidence: 0.7}
}
