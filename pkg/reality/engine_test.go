package reality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/annad/pkg/evidence"
)

type noHistory struct{}

func (noHistory) SimilarContradictions(string) bool { return false }

func TestCheckVerifiedWhenAllAgree(t *testing.T) {
	e := NewEngine(false)
	ev := []evidence.Evidence{
		{ID: "E0", Source: "telemetry", Content: "uname: Linux", ExitCode: 0},
		{ID: "E1", Source: "mem.free", Content: "Mem: 16384 4096 10000", ExitCode: 0},
	}
	res := e.Check(context.Background(), "you have 16 GiB of RAM", []string{"E1"}, ev, noHistory{})
	assert.Equal(t, StatusVerified, res.Status)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestCheckContradictedOnUnknownCitation(t *testing.T) {
	e := NewEngine(false)
	ev := []evidence.Evidence{
		{ID: "E0", Source: "telemetry", Content: "uname: Linux", ExitCode: 0},
	}
	res := e.Check(context.Background(), "you have 16 GiB of RAM", []string{"E9"}, ev, noHistory{})
	assert.Equal(t, StatusContradicted, res.Status)
}

func TestCheckInconclusiveWithNoEvidence(t *testing.T) {
	e := &Engine{} // no signals configured
	res := e.Check(context.Background(), "anything", nil, nil, noHistory{})
	assert.Equal(t, StatusInconclusive, res.Status)
}

func TestProcessUnitSignalFlagsFailedService(t *testing.T) {
	sig := ProcessUnitSignal{}
	ev := []evidence.Evidence{
		{ID: "E1", Source: "svc.failed", Content: "nginx.service loaded failed failed Web server"},
	}
	r := sig.Check("nginx is running fine", nil, ev, nil)
	assert.Equal(t, VerdictDisagrees, r.Verdict)
}

func TestLogicalConsistencySignalCatchesContradiction(t *testing.T) {
	sig := LogicalConsistencySignal{}
	r := sig.Check("steam is installed and steam is not installed", nil, nil, nil)
	assert.Equal(t, VerdictDisagrees, r.Verdict)
}

func TestSafetyRailsSignalFlagsUnconfirmedMutation(t *testing.T) {
	sig := SafetyRailsSignal{MutationConfirmed: false}
	r := sig.Check("I restarted NetworkManager for you", nil, nil, nil)
	assert.Equal(t, VerdictDisagrees, r.Verdict)
}

func TestRecommendedAction(t *testing.T) {
	assert.Equal(t, ActionProceed, RecommendedAction(Result{Status: StatusVerified, Confidence: 0.9}, 0.8))
	assert.Equal(t, ActionProceedWithCaution, RecommendedAction(Result{Status: StatusVerified, Confidence: 0.5}, 0.8))
	assert.Equal(t, ActionAbort, RecommendedAction(Result{Status: StatusContradicted, Severity: SeverityCritical}, 0.8))
	assert.Equal(t, ActionRequestClarification, RecommendedAction(Result{Status: StatusContradicted, Severity: SeverityMajor}, 0.8))
}
