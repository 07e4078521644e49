// Package ipc implements the local transport between the core daemon and
// its front-ends: a Unix domain socket carrying framed JSON
// request/response. Framing is line-delimited JSON — one request, one
// response, read and written with encoding/json's streaming Decoder and
// Encoder directly against the connection, draining chunk by chunk
// rather than buffering a whole message.
package ipc

import (
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/presenter"
	"github.com/codeready-toolchain/annad/pkg/safety"
)

// Method enumerates the IPC methods the core exposes.
type Method string

const (
	MethodAnswerQuery         Method = "AnswerQuery"
	MethodAnswerQueryStreamed Method = "AnswerQueryStreamed"
	MethodListMemory          Method = "ListMemory"
	MethodListRecipes         Method = "ListRecipes"
	MethodProposeMutation     Method = "ProposeMutation"
	MethodConfirmMutation     Method = "ConfirmMutation"
	MethodSelfTest            Method = "SelfTest"
)

// Request is one framed request. ID is echoed back on every Response and
// every Chunk/End belonging to a streamed call, so a reply can be matched
// to its request. The server answers the requests of one connection one
// at a time, in order.
type Request struct {
	ID     string          `json:"id"`
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one framed reply to a non-streaming Request.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject reports a taxonomy'd failure back to the client. Kind is a
// small set of tagged error kinds (e.g. "phrase_mismatch", "expired",
// "veto_from_reality_check", "not_found") so a scripted client can branch on it
// without parsing Message.
type ErrorObject struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ChunkKind enumerates the two kinds of interim frame AnswerQueryStreamed
// may emit before its terminal End frame.
type ChunkKind string

const (
	ChunkProgress ChunkKind = "progress"
	ChunkPartial  ChunkKind = "partial"
)

// Chunk is one interim frame of a streamed answer.
type Chunk struct {
	Kind ChunkKind `json:"kind"`
	Data string    `json:"data"`
}

// StreamFrame wraps either a Chunk or the terminal End so a streamed call
// can be told apart frame-by-frame without a second field on every frame.
type StreamFrame struct {
	ID    string           `json:"id"`
	Chunk *Chunk           `json:"chunk,omitempty"`
	End   *presenter.Record `json:"end,omitempty"`
	Error *ErrorObject     `json:"error,omitempty"`
}

// AnswerQueryParams is the payload of an AnswerQuery / AnswerQueryStreamed request.
type AnswerQueryParams struct {
	Text        string `json:"text"`
	SessionKind string `json:"session_kind,omitempty"`
}

// ListMemoryParams is the payload of a ListMemory request.
type ListMemoryParams struct {
	Since   time.Time `json:"since"`
	Keyword string    `json:"keyword,omitempty"`
	Limit   int       `json:"limit"`
}

// MemorySummary is one entry of a ListMemory response: enough to show a
// human the session without paging the full record.
type MemorySummary struct {
	MemoryID         string    `json:"memory_id"`
	Timestamp        time.Time `json:"timestamp"`
	RequestText      string    `json:"request_text"`
	AnswerSummary    string    `json:"answer_summary"`
	ReliabilityScore float64   `json:"reliability_score"`
	Success          bool      `json:"success"`
}

// ListMemoryResult is the payload of a ListMemory response.
type ListMemoryResult struct {
	Sessions []MemorySummary `json:"sessions"`
}

// ListRecipesParams is the payload of a ListRecipes request.
type ListRecipesParams struct {
	Limit int `json:"limit"`
}

// RecipeSummary is one entry of a ListRecipes response.
type RecipeSummary struct {
	RecipeID     string  `json:"recipe_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Confidence   float64 `json:"confidence"`
	Draft        bool    `json:"draft"`
	SuccessCount int     `json:"success_count"`
}

// ListRecipesResult is the payload of a ListRecipes response.
type ListRecipesResult struct {
	Recipes []RecipeSummary `json:"recipes"`
}

// ProposeMutationParams is the payload of a ProposeMutation request. The
// plan id names a mutation the orchestrator already staged while
// answering a prior query (the AnswerRecord does not carry it) — Propose here
// is a lookup of that staged plan's full detail, not a fresh proposal;
// the gate itself only ever proposes internally, during answer
// processing.
type ProposeMutationParams struct {
	PlanID string `json:"plan_id"`
}

// ConfirmMutationParams is the payload of a ConfirmMutation request.
type ConfirmMutationParams struct {
	PlanID string `json:"plan_id"`
	Phrase string `json:"phrase"`
}

// ConfirmMutationResult is the payload of a ConfirmMutation response.
type ConfirmMutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProposeMutationResult is the payload of a ProposeMutation response:
// safety.PendingMutation is already JSON-tagged for the wire, so it is
// returned as-is rather than through an intermediate view type.
type ProposeMutationResult struct {
	Mutation safety.PendingMutation `json:"mutation"`
}

// SelfTestResult is the payload of a SelfTest response.
type SelfTestResult struct {
	Report catalog.HealthReport `json:"report"`
}
