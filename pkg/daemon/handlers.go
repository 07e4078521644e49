package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/ipc"
	"github.com/codeready-toolchain/annad/pkg/memory"
	"github.com/codeready-toolchain/annad/pkg/presenter"
	"github.com/codeready-toolchain/annad/pkg/safety"
	"github.com/codeready-toolchain/annad/pkg/session"
)

// AnswerQuery implements ipc.Handler.
func (c *Context) AnswerQuery(ctx context.Context, text, sessionKind string) (presenter.Record, error) {
	if err := c.acquireSession(ctx); err != nil {
		return presenter.Record{}, fmt.Errorf("daemon: acquiring session slot: %w", err)
	}
	defer c.releaseSession()

	sess := c.newSession(text, sessionKind)
	out, err := c.orch.Run(ctx, sess)
	if err != nil {
		return presenter.Record{}, err
	}
	c.recordSession(sess, out)
	if out.AskUser != "" {
		return presenter.Build(presenter.Input{Summary: out.AskUser, Reliability: 0, Label: out.Record.Label}), nil
	}
	return out.Record, nil
}

// AnswerQueryStreamed implements ipc.Handler. The orchestrator itself
// runs to completion synchronously (it is not internally streaming); this
// emits one "starting" progress Chunk, runs AnswerQuery to completion, and
// then emits one partial Chunk carrying the final text, rather than
// threading a progress channel through orchestrator.Run — the orchestrator's
// contract with the rest of the core stays unchanged, and streaming
// becomes a presentation concern of the IPC layer alone.
func (c *Context) AnswerQueryStreamed(ctx context.Context, text string, progress chan<- Chunk) (presenter.Record, error) {
	progress <- Chunk{Kind: ipc.ChunkProgress, Data: "starting"}
	rec, err := c.AnswerQuery(ctx, text, string(session.KindOneShot))
	if err != nil {
		return presenter.Record{}, err
	}
	progress <- Chunk{Kind: ipc.ChunkPartial, Data: rec.Text}
	return rec, nil
}

// Chunk is a local alias so this file reads naturally; it is exactly
// ipc.Chunk.
type Chunk = ipc.Chunk

// ListMemory implements ipc.Handler.
func (c *Context) ListMemory(ctx context.Context, since time.Time, keyword string, limit int) ([]ipc.MemorySummary, error) {
	var records []memory.SessionRecord
	var err error
	if keyword != "" {
		records, err = c.memStore.Search(keyword, limit)
	} else {
		records, err = c.memStore.Recent(limit)
	}
	if err != nil {
		return nil, fmt.Errorf("daemon: listing memory: %w", err)
	}

	out := make([]ipc.MemorySummary, 0, len(records))
	for _, r := range records {
		if !since.IsZero() && r.Timestamp.Before(since) {
			continue
		}
		out = append(out, ipc.MemorySummary{
			MemoryID:         r.MemoryID,
			Timestamp:        r.Timestamp,
			RequestText:      r.RequestText,
			AnswerSummary:    r.AnswerSummary,
			ReliabilityScore: r.ReliabilityScore,
			Success:          r.Success,
		})
	}
	return out, nil
}

// ListRecipes implements ipc.Handler.
func (c *Context) ListRecipes(ctx context.Context, limit int) ([]ipc.RecipeSummary, error) {
	recipes := c.recipeStore.List(limit)
	out := make([]ipc.RecipeSummary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, ipc.RecipeSummary{
			RecipeID:     r.RecipeID,
			Name:         r.Name,
			Description:  r.Description,
			Confidence:   r.Confidence,
			Draft:        r.Draft,
			SuccessCount: r.SuccessCount,
		})
	}
	return out, nil
}

// ProposeMutation implements ipc.Handler: it looks up a plan the
// orchestrator already staged with the safety gate during a prior
// AnswerQuery (created by the orchestrator, consumed by confirmation or
// timeout — never created fresh by this call).
func (c *Context) ProposeMutation(ctx context.Context, planID string) (safety.PendingMutation, error) {
	pm, ok := c.gate.Get(planID)
	if !ok {
		return safety.PendingMutation{}, safety.ErrUnknownPlan
	}
	return pm, nil
}

// ConfirmMutation implements ipc.Handler. On a matched phrase it executes
// the plan's commands through the catalog executor; any failure during
// execution is reported in Message but does not undo the ledger entry —
// the ledger records what was attempted, not just what succeeded.
// MutationForgetMemory and MutationArchiveRecipe have no catalog Commands
// to run: they carry the memory_id / recipe_id values to archive in
// EvidenceIDs instead, and are dispatched to the matching store.
func (c *Context) ConfirmMutation(ctx context.Context, planID, phrase string) (bool, string, error) {
	pm, err := c.gate.Confirm(planID, phrase)
	if err != nil {
		return false, "", err
	}

	switch pm.Kind {
	case safety.MutationForgetMemory:
		return c.confirmForgetMemory(pm)
	case safety.MutationArchiveRecipe:
		return c.confirmArchiveRecipe(pm)
	}

	var failures []string
	for _, cmd := range pm.Commands {
		res, err := c.executor.Execute(ctx, cmd.ToolID, cmd.Args)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", cmd.ToolID, err))
			continue
		}
		if res.Status != catalog.StatusSuccess {
			failures = append(failures, fmt.Sprintf("%s: exit=%d status=%s stderr=%s", cmd.ToolID, res.ExitCode, res.Status, res.Stderr))
		}
	}
	if len(failures) > 0 {
		return false, "mutation confirmed but execution failed: " + strings.Join(failures, "; "), nil
	}
	return true, "mutation applied", nil
}

func (c *Context) confirmForgetMemory(pm safety.PendingMutation) (bool, string, error) {
	var failures []string
	archived := 0
	for _, id := range pm.EvidenceIDs {
		ok, err := c.memStore.Archive(id, "forgotten by user request")
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if ok {
			archived++
		}
	}
	if len(failures) > 0 {
		return false, "forget confirmed but archival failed: " + strings.Join(failures, "; "), nil
	}
	return true, fmt.Sprintf("forgot %d memory record(s)", archived), nil
}

func (c *Context) confirmArchiveRecipe(pm safety.PendingMutation) (bool, string, error) {
	var failures []string
	archived := 0
	for _, id := range pm.EvidenceIDs {
		ok, err := c.recipeStore.Archive(id, "archived by user request")
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if ok {
			archived++
		}
	}
	if len(failures) > 0 {
		return false, "archive confirmed but failed: " + strings.Join(failures, "; "), nil
	}
	return true, fmt.Sprintf("archived %d recipe(s)", archived), nil
}

// SelfTest implements ipc.Handler.
func (c *Context) SelfTest(ctx context.Context) (catalog.HealthReport, error) {
	report, err := c.executor.SelfTest(ctx)
	if err != nil {
		return catalog.HealthReport{}, err
	}
	return *report, nil
}
