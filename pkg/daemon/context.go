// Package daemon wires every component package into one running process:
// the catalog, the evidence/fact/memory/recipe stores, the thinker, the
// orchestrator, the safety gate, and the IPC server. There is exactly one
// Context per process and no package-level state anywhere in the tree,
// so cmd/annad/main.go stays a thin entrypoint.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/config"
	"github.com/codeready-toolchain/annad/pkg/facts"
	"github.com/codeready-toolchain/annad/pkg/ipc"
	"github.com/codeready-toolchain/annad/pkg/memory"
	"github.com/codeready-toolchain/annad/pkg/orchestrator"
	"github.com/codeready-toolchain/annad/pkg/reliability"
	"github.com/codeready-toolchain/annad/pkg/safety"
	"github.com/codeready-toolchain/annad/pkg/session"
	"github.com/codeready-toolchain/annad/pkg/thinker"
)

// Context owns every long-lived component of the running daemon. It is
// constructed once by New and handed to the IPC server as its Handler.
type Context struct {
	cfg *config.Config

	catalog  *catalog.Registry
	executor *catalog.Executor
	facts    *facts.Cache

	memStore    *memory.Store
	recipeStore *memory.RecipeStore

	ledger *safety.Ledger
	gate   *safety.Gate

	thinker thinker.Thinker
	orch    *orchestrator.Orchestrator

	// sessions is a buffered-channel semaphore bounding the number of
	// concurrent AnswerQuery/AnswerQueryStreamed calls in flight:
	// acquiring is sending a token in, releasing is draining one back out.
	sessions chan struct{}
}

// New constructs a Context from cfg. It builds the catalog registry and
// executor from the fixed built-in table, opens every on-disk store
// under cfg.StateDir, and wires the thinker HTTP client and orchestrator.
// A non-nil error here is a fatal, daemon-wide condition (store
// corruption) and should abort startup.
func New(cfg *config.Config) (*Context, error) {
	reg, err := catalog.NewRegistry(catalog.Table)
	if err != nil {
		return nil, fmt.Errorf("daemon: building catalog registry: %w", err)
	}
	exec := catalog.NewExecutor(reg, cfg.Limits.HeavyConcurrency)

	factsCache := facts.NewCache(cfg.StateDir)
	if err := factsCache.Load(); err != nil {
		slog.Warn("daemon: learned-fact cache failed to load, starting empty", "error", err)
	}

	memStore, err := memory.NewStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("daemon: opening memory store: %w", err)
	}
	recipeStore, err := memory.NewRecipeStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("daemon: opening recipe store: %w", err)
	}

	ledger, err := safety.NewLedger(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("daemon: opening change ledger: %w", err)
	}
	gate := safety.NewGate(ledger, cfg.Safety.ConfirmTTL)

	th := thinker.NewHTTPClient(cfg.Thinker.Endpoint, cfg.Thinker.Timeout)

	thresholds := reliability.Thresholds{
		High:   cfg.Reliability.HighThreshold,
		Medium: cfg.Reliability.MediumThreshold,
		Low:    cfg.Reliability.LowThreshold,
	}

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
		cfg:         cfg,
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
	}, nil
}

// Close releases every resource the Context owns (currently only the
// fact cache's background writer needs an explicit stop).
func (c *Context) Close() {
	c.facts.Close()
}

// acquireSession enforces the per-process concurrent-session cap; extras
// block until a slot frees or ctx is cancelled.
func (c *Context) acquireSession(ctx context.Context) error {
	select {
	case c.sessions <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Context) releaseSession() {
	<-c.sessions
}

// newSession builds a Session for one AnswerQuery call, sized from the
// daemon's configured limits.
func (c *Context) newSession(query, sessionKind string) *session.Session {
	kind := session.KindOneShot
	if sessionKind == string(session.KindInteractive) {
		kind = session.KindInteractive
	}
	return session.New(query, kind, c.catalog, c.cfg.Limits.MaxEvidenceItems, c.cfg.Limits.OutputCapBytes, c.cfg.Limits.MaxIterations)
}

// recordSession appends a compact SessionRecord to the memory store
// summarizing what the session produced; failures to persist are logged
// but never surface as an AnswerQuery error, since the answer itself
// already reached the client.
func (c *Context) recordSession(sess *session.Session, out orchestrator.Outcome) {
	kind := memory.SessionOneShot
	if sess.Kind == session.KindInteractive {
		kind = memory.SessionInteractive
	}

	rec := memory.NewSessionRecord(c.memStore.NextID(), sess.Query, kind)
	rec.AnswerSummary = out.Record.Text
	rec.ReliabilityScore = out.Record.Reliability
	rec.Success = out.AskUser == "" && out.Record.Text != ""
	rec.DurationMS = time.Since(sess.StartedAt).Milliseconds()
	rec.RecipeAction = out.RecipeAction

	var refs []string
	for _, ev := range sess.Evidence.Iter() {
		refs = append(refs, ev.ID)
	}
	rec.EvidenceIDsReferenced = refs

	if err := c.memStore.Store(rec); err != nil {
		slog.Error("daemon: failed to persist session record", "error", err)
	}
}

var _ ipc.Handler = (*Context)(nil)
