package reality

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/annad/pkg/evidence"
)

// Engine runs the configured signals over a proposed answer. Signals
// execute concurrently — a read-only fan-out generalized from the
// sub-agent dispatch pattern used elsewhere in the daemon — and the
// engine blocks until every signal has reported.
type Engine struct {
	signals []Signal
}

// NewEngine builds an Engine with the six fixed signals: telemetry
// comparison, filesystem existence, process/unit status, historical
// pattern comparison, logical consistency, and safety rails.
func NewEngine(mutationConfirmed bool) *Engine {
	return &Engine{signals: []Signal{
		TelemetrySignal{},
		FilesystemSignal{},
		ProcessUnitSignal{},
		HistoricalPatternSignal{},
		LogicalConsistencySignal{},
		SafetyRailsSignal{MutationConfirmed: mutationConfirmed},
	}}
}

// Check runs every signal and aggregates per these rules: unanimous
// agreement verifies; unanimous disagreement is a critical
// contradiction; a majority disagreeing is major; a single dissent is
// minor; no signals at all is inconclusive.
func (e *Engine) Check(ctx context.Context, answer string, evidenceRefs []string, ev []evidence.Evidence, hist HistoricalLookup) Result {
	if len(e.signals) == 0 {
		return Result{Status: StatusInconclusive, Reason: "no signals configured"}
	}

	results := make([]SignalResult, len(e.signals))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for i, sig := range e.signals {
		i, sig := i, sig
		g.Go(func() error {
			r := sig.Check(answer, evidenceRefs, ev, hist)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // signals never themselves error and do not observe ctx

	return aggregate(results)
}

func aggregate(results []SignalResult) Result {
	var agree, disagree, uncertain int
	var confSum float64
	var discrepancies []Discrepancy

	for _, r := range results {
		switch r.Verdict {
		case VerdictAgrees:
			agree++
			confSum += r.Confidence
		case VerdictDisagrees:
			disagree++
			discrepancies = append(discrepancies, Discrepancy{Signal: r.Name, Description: r.Reason})
		case VerdictUncertain:
			uncertain++
		}
	}

	total := len(results)
	if agree == 0 && disagree == 0 {
		return Result{Status: StatusInconclusive, Reason: "no signals available", Signals: results}
	}

	switch {
	case disagree == total:
		return Result{Status: StatusContradicted, Severity: SeverityCritical, Confidence: 0, Signals: results, Discrepancies: discrepancies}
	case disagree > total/2:
		return Result{Status: StatusContradicted, Severity: SeverityMajor, Confidence: 0.2, Signals: results, Discrepancies: discrepancies}
	case disagree == 1:
		return Result{Status: StatusContradicted, Severity: SeverityMinor, Confidence: 0.4, Signals: results, Discrepancies: discrepancies}
	case disagree > 1:
		return Result{Status: StatusContradicted, Severity: SeverityMajor, Confidence: 0.2, Signals: results, Discrepancies: discrepancies}
	case agree == total:
		return Result{Status: StatusVerified, Confidence: confSum / float64(agree), Signals: results}
	default:
		// Mix of agree and uncertain with no disagreement: verified, but
		// the confidence reflects only the agreeing signals.
		return Result{Status: StatusVerified, Confidence: confSum / float64(agree), Signals: results}
	}
}
