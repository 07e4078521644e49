// Package reality implements the multi-signal verification of a proposed
// answer against independently collected evidence.
package reality

// Verdict is one signal's independent judgement on the proposed answer.
type Verdict string

const (
	VerdictAgrees    Verdict = "agrees"
	VerdictDisagrees Verdict = "disagrees"
	VerdictUncertain Verdict = "uncertain"
)

// SignalResult is the outcome of one independent signal.
type SignalResult struct {
	Name       string
	Verdict    Verdict
	Reason     string
	Confidence float64
}

// Severity classifies a contradiction between the answer and the evidence.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Status is the aggregate tagged outcome of the reality-check.
type Status string

const (
	StatusVerified     Status = "verified"
	StatusContradicted Status = "contradicted"
	StatusInconclusive Status = "inconclusive"
	StatusFailed       Status = "failed"
)

// Discrepancy names one concrete disagreement between the answer and the
// evidence, surfaced to the user on a request_clarification action.
type Discrepancy struct {
	Signal      string
	Description string
}

// Result is the aggregate outcome of the reality-check engine.
type Result struct {
	Status      Status
	Severity    Severity // only meaningful when Status == StatusContradicted
	Reason      string   // only meaningful when Status is inconclusive or failed
	Confidence  float64
	Signals     []SignalResult
	Discrepancies []Discrepancy
}

// Action is the recommended next step derived from a Result.
type Action string

const (
	ActionProceed              Action = "proceed"
	ActionProceedWithCaution   Action = "proceed_with_caution"
	ActionAbort                Action = "abort"
	ActionRequestClarification Action = "request_clarification"
)

// RecommendedAction maps a Result to the action the orchestrator and
// safety gate should take.
func RecommendedAction(r Result, verifiedThreshold float64) Action {
	switch r.Status {
	case StatusVerified:
		if r.Confidence >= verifiedThreshold {
			return ActionProceed
		}
		return ActionProceedWithCaution
	case StatusContradicted:
		switch r.Severity {
		case SeverityCritical:
			return ActionAbort
		case SeverityMajor:
			return ActionRequestClarification
		default:
			return ActionProceedWithCaution
		}
	default:
		return ActionProceedWithCaution
	}
}
