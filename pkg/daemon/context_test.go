package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/config"
	"github.com/codeready-toolchain/annad/pkg/facts"
	"github.com/codeready-toolchain/annad/pkg/memory"
	"github.com/codeready-toolchain/annad/pkg/orchestrator"
	"github.com/codeready-toolchain/annad/pkg/reality"
	"github.com/codeready-toolchain/annad/pkg/reliability"
	"github.com/codeready-toolchain/annad/pkg/safety"
	"github.com/codeready-toolchain/annad/pkg/thinker"
)

// newTestContext wires a Context the same way New does, but with a
// StubThinker in place of the HTTP client so tests never touch the
// network, and every on-disk store rooted under t.TempDir().
func newTestContext(t *testing.T, th thinker.Thinker) *Context {
	t.Helper()
	dir := t.TempDir()

	reg, err := catalog.NewRegistry(catalog.Table)
	require.NoError(t, err)
	exec := catalog.NewExecutor(reg, 1)

	factsCache := facts.NewCache(dir)
	t.Cleanup(factsCache.Close)

	memStore, err := memory.NewStore(dir)
	require.NoError(t, err)
	recipeStore, err := memory.NewRecipeStore(dir)
	require.NoError(t, err)

	ledger, err := safety.NewLedger(dir)
	require.NoError(t, err)
	gate := safety.NewGate(ledger, time.Minute)

	thresholds := reliability.DefaultThresholds()

	orch := &orchestrator.Orchestrator{
		Executor:          exec,
		Thinker:           th,
		Facts:             factsCache,
		Thresholds:        thresholds,
		VerifiedThreshold: thresholds.Medium,
		History:           memStore,
		Memory:            memStore,
		Recipes:           recipeStore,
		Gate:              gate,
	}

	return &Context{
		cfg: &config.Config{
			StateDir: dir,
			Limits: config.Limits{
				MaxIterations:    8,
				OutputCapBytes:   64 * 1024,
				MaxEvidenceItems: 64,
			},
		},
		catalog:     reg,
		executor:    exec,
		facts:       factsCache,
		memStore:    memStore,
		recipeStore: recipeStore,
		ledger:      ledger,
		gate:        gate,
		thinker:     th,
		orch:        orch,
		sessions:    make(chan struct{}, 8),
	}
}

func TestAnswerQueryEndToEndWithFinalAnswer(t *testing.T) {
	th := thinker.NewStubThinker(thinker.Step{
		Kind: thinker.StepFinalAnswer,
		FinalAnswer: &thinker.FinalAnswer{
			Answer:      "the system has 16GB of RAM",
			Reliability: 0.9,
		},
	})
	c := newTestContext(t, th)

	rec, err := c.AnswerQuery(context.Background(), "how much ram do we have?", "one_shot")
	require.NoError(t, err)
	assert.Contains(t, rec.Text, "16GB")

	recent, err := c.memStore.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "how much ram do we have?", recent[0].RequestText)
}

func TestAnswerQueryFallsBackWhenThinkerUnreachable(t *testing.T) {
	th := thinker.NewFailingThinker(thinker.ErrUnreachable)
	c := newTestContext(t, th)

	rec, err := c.AnswerQuery(context.Background(), "how much disk space is free?", "one_shot")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Text)
}

func TestProposeAndConfirmMutationThroughGate(t *testing.T) {
	c := newTestContext(t, thinker.NewStubThinker())

	pm, err := c.gate.Propose(
		safety.MutationServiceRestart, "NetworkManager",
		[]safety.Command{{ToolID: "svc.restart", Args: []string{"NetworkManager"}}},
		[]safety.Command{{ToolID: "svc.start", Args: []string{"NetworkManager"}}},
		[]string{"E0"},
		reality.Result{Status: reality.StatusVerified, Confidence: 0.9},
	)
	require.NoError(t, err)

	_, _, err = c.ConfirmMutation(context.Background(), pm.PlanID, "wrong phrase")
	assert.ErrorIs(t, err, safety.ErrPhraseMismatch)

	_, found := c.gate.Get(pm.PlanID)
	assert.True(t, found, "a phrase mismatch must leave the pending mutation in place")

	entries, err := c.ledger.All()
	require.NoError(t, err)
	assert.Empty(t, entries, "a phrase mismatch must not be ledgered")
}

func TestSelfTestReportsOverallStatus(t *testing.T) {
	c := newTestContext(t, thinker.NewStubThinker())

	report, err := c.SelfTest(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.Status)
	assert.NotEmpty(t, report.PerTool)
}

func TestAnswerQueryHonorsSessionCap(t *testing.T) {
	th := thinker.NewStubThinker(thinker.Step{
		Kind:        thinker.StepFinalAnswer,
		FinalAnswer: &thinker.FinalAnswer{Answer: "ok", Reliability: 0.9},
	})
	c := newTestContext(t, th)
	c.sessions = make(chan struct{}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, c.acquireSession(context.Background()))
	err := c.acquireSession(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	c.releaseSession()
}
