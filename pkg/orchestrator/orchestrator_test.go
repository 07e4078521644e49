package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/facts"
	"github.com/codeready-toolchain/annad/pkg/reliability"
	"github.com/codeready-toolchain/annad/pkg/session"
	"github.com/codeready-toolchain/annad/pkg/thinker"
)

func testSetup(t *testing.T) (*Orchestrator, *session.Session, *catalog.Registry) {
	t.Helper()
	reg, err := catalog.NewRegistry([]catalog.Spec{
		{ToolID: "sys.echo", Binary: "echo", ArgvPrefix: []string{"ok"}, Kind: catalog.KindStateless, Freshness: catalog.FreshnessStatic, Required: true, Description: "self-test"},
	})
	require.NoError(t, err)

	exec := catalog.NewExecutor(reg, 1)
	fc := facts.NewCache(t.TempDir())
	t.Cleanup(fc.Close)

	sess := session.New("how much RAM do I have?", session.KindOneShot, reg, 32, 8192, 8)

	o := &Orchestrator{
		Executor:          exec,
		Facts:             fc,
		Thresholds:        reliability.DefaultThresholds(),
		VerifiedThreshold: 0.7,
	}
	return o, sess, reg
}

func TestRunTerminatesOnFinalAnswer(t *testing.T) {
	o, sess, _ := testSetup(t)
	o.Thinker = thinker.NewStubThinker(thinker.Step{
		Kind: thinker.StepFinalAnswer,
		FinalAnswer: &thinker.FinalAnswer{
			Answer:       "You have 16 GiB of RAM.",
			EvidenceRefs: []string{"E0"},
			Reliability:  0.9,
		},
	})

	out, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Contains(t, out.Record.Text, "16 GiB")
	assert.False(t, out.UsedFallback)
}

func TestRunRecordsRejectionForUnknownTool(t *testing.T) {
	o, sess, _ := testSetup(t)
	o.Thinker = thinker.NewStubThinker(
		thinker.Step{Kind: thinker.StepDecideTool, DecideTool: &thinker.DecideTool{ToolID: "no.such.tool", Why: "trying"}},
		thinker.Step{Kind: thinker.StepFinalAnswer, FinalAnswer: &thinker.FinalAnswer{Answer: "done", EvidenceRefs: []string{"E0"}}},
	)

	_, err := o.Run(context.Background(), sess)
	require.NoError(t, err)

	found := false
	for _, e := range sess.Evidence.Iter() {
		if e.Description == "rejected: not in catalog" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunAskUserEarlyTriesFallbackFirst(t *testing.T) {
	o, sess, _ := testSetup(t)
	o.Thinker = thinker.NewStubThinker(
		thinker.Step{Kind: thinker.StepAskUser, AskUser: &thinker.AskUser{UserQuestion: "which disk do you mean?"}},
	)

	out, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	// the query matches the hardware fallback intent, but with no cached
	// total_ram fact the fallback declines, so it falls through to asking the user
	assert.Equal(t, "which disk do you mean?", out.AskUser)
}

func TestRunExhaustsIterationsAndGivesUp(t *testing.T) {
	o, sess, _ := testSetup(t)
	o.Thinker = thinker.NewStubThinker(
		thinker.Step{Kind: thinker.StepDecideTool, DecideTool: &thinker.DecideTool{ToolID: "sys.echo", Why: "probe"}},
	)

	out, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, reliability.LabelVeryLow, out.Record.Label)
}
