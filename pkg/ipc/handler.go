package ipc

import (
	"context"
	"time"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/presenter"
	"github.com/codeready-toolchain/annad/pkg/safety"
)

// Handler is implemented by pkg/daemon and invoked by Server for each
// decoded Request. It is the seam between the wire protocol and the
// wired-up core: Server never touches an orchestrator, a store, or a
// gate directly.
type Handler interface {
	AnswerQuery(ctx context.Context, text, sessionKind string) (presenter.Record, error)

	// AnswerQueryStreamed runs the same query but pushes progress/partial
	// Chunks to progress before it returns, returning the final Record
	// once the loop concludes. progress is never closed by
	// the implementation — the caller (Server) owns its lifecycle.
	AnswerQueryStreamed(ctx context.Context, text string, progress chan<- Chunk) (presenter.Record, error)

	ListMemory(ctx context.Context, since time.Time, keyword string, limit int) ([]MemorySummary, error)
	ListRecipes(ctx context.Context, limit int) ([]RecipeSummary, error)

	ProposeMutation(ctx context.Context, planID string) (safety.PendingMutation, error)
	ConfirmMutation(ctx context.Context, planID, phrase string) (bool, string, error)

	SelfTest(ctx context.Context) (catalog.HealthReport, error)
}
