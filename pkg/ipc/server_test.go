package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/presenter"
	"github.com/codeready-toolchain/annad/pkg/reliability"
	"github.com/codeready-toolchain/annad/pkg/safety"
)

// fakeHandler is an in-memory Handler double exercising every IPC method.
type fakeHandler struct {
	mutation safety.PendingMutation
}

func (f *fakeHandler) AnswerQuery(ctx context.Context, text, sessionKind string) (presenter.Record, error) {
	return presenter.Build(presenter.Input{Summary: "echo: " + text, Reliability: 0.9, Label: reliability.LabelHigh}), nil
}

func (f *fakeHandler) AnswerQueryStreamed(ctx context.Context, text string, progress chan<- Chunk) (presenter.Record, error) {
	progress <- Chunk{Kind: ChunkProgress, Data: "probing"}
	progress <- Chunk{Kind: ChunkPartial, Data: "partial answer"}
	return presenter.Build(presenter.Input{Summary: "final: " + text, Reliability: 0.9, Label: reliability.LabelHigh}), nil
}

func (f *fakeHandler) ListMemory(ctx context.Context, since time.Time, keyword string, limit int) ([]MemorySummary, error) {
	return []MemorySummary{{MemoryID: "MEM1", RequestText: "q", AnswerSummary: "a", ReliabilityScore: 0.8, Success: true}}, nil
}

func (f *fakeHandler) ListRecipes(ctx context.Context, limit int) ([]RecipeSummary, error) {
	return []RecipeSummary{{RecipeID: "REC1", Name: "restart nm", Confidence: 0.8}}, nil
}

func (f *fakeHandler) ProposeMutation(ctx context.Context, planID string) (safety.PendingMutation, error) {
	if planID != f.mutation.PlanID {
		return safety.PendingMutation{}, safety.ErrUnknownPlan
	}
	return f.mutation, nil
}

func (f *fakeHandler) ConfirmMutation(ctx context.Context, planID, phrase string) (bool, string, error) {
	if planID != f.mutation.PlanID {
		return false, "", safety.ErrUnknownPlan
	}
	if phrase != f.mutation.ConfirmPhrase {
		return false, "", safety.ErrPhraseMismatch
	}
	return true, "applied", nil
}

func (f *fakeHandler) SelfTest(ctx context.Context) (catalog.HealthReport, error) {
	return catalog.HealthReport{Status: "healthy"}, nil
}

func startTestServer(t *testing.T, h Handler) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "annad.sock")
	srv := NewServer(sockPath, h)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		<-done
	})
	return srv, sockPath
}

func TestAnswerQueryRoundTrip(t *testing.T) {
	_, sock := startTestServer(t, &fakeHandler{})
	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	rec, err := c.AnswerQuery("how much ram?", "one_shot")
	require.NoError(t, err)
	assert.Contains(t, rec.Text, "echo: how much ram?")
	assert.Equal(t, reliability.LabelHigh, rec.Label)
}

func TestListMemoryAndListRecipes(t *testing.T) {
	_, sock := startTestServer(t, &fakeHandler{})
	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	mem, err := c.ListMemory(ListMemoryParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, mem.Sessions, 1)
	assert.Equal(t, "MEM1", mem.Sessions[0].MemoryID)

	rec, err := c.ListRecipes(10)
	require.NoError(t, err)
	require.Len(t, rec.Recipes, 1)
	assert.Equal(t, "REC1", rec.Recipes[0].RecipeID)
}

func TestProposeAndConfirmMutation(t *testing.T) {
	h := &fakeHandler{mutation: safety.PendingMutation{
		PlanID:        "PLAN1",
		ConfirmPhrase: "restart NetworkManager",
		ExpiresAt:     time.Now().Add(time.Minute),
	}}
	_, sock := startTestServer(t, h)
	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	prop, err := c.ProposeMutation("PLAN1")
	require.NoError(t, err)
	assert.Equal(t, "PLAN1", prop.Mutation.PlanID)

	_, err = c.ConfirmMutation("PLAN1", "wrong phrase")
	assert.ErrorContains(t, err, "phrase_mismatch")

	confirmed, err := c.ConfirmMutation("PLAN1", "restart NetworkManager")
	require.NoError(t, err)
	assert.True(t, confirmed.Success)
}

func TestProposeUnknownPlanReturnsNotFound(t *testing.T) {
	_, sock := startTestServer(t, &fakeHandler{})
	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ProposeMutation("no-such-plan")
	assert.ErrorContains(t, err, "not_found")
}

func TestSelfTest(t *testing.T) {
	_, sock := startTestServer(t, &fakeHandler{})
	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	rep, err := c.SelfTest()
	require.NoError(t, err)
	assert.Equal(t, "healthy", rep.Report.Status)
}

func TestStreamAnswerQueryDeliversChunksThenEnd(t *testing.T) {
	_, sock := startTestServer(t, &fakeHandler{})
	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	frames := make(chan StreamFrame, 8)
	require.NoError(t, c.StreamAnswerQuery("disk space?", frames))

	var kinds []ChunkKind
	var gotEnd bool
	for f := range frames {
		if f.Chunk != nil {
			kinds = append(kinds, f.Chunk.Kind)
		}
		if f.End != nil {
			gotEnd = true
			assert.Contains(t, f.End.Text, "final: disk space?")
		}
	}
	assert.Equal(t, []ChunkKind{ChunkProgress, ChunkPartial}, kinds)
	assert.True(t, gotEnd)
}
