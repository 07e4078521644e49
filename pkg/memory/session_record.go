// Package memory implements the session-scoped memory and recipe store:
// append-only session records, a keyword/recency index, archive-on-forget,
// and the recipe lifecycle (create/update/draft/archive).
package memory

import (
	"time"
)

// SessionType distinguishes an interactive REPL session from a one-shot
// query.
type SessionType string

const (
	SessionInteractive SessionType = "interactive"
	SessionOneShot      SessionType = "one_shot"
)

func (s SessionType) IsValid() bool {
	switch s {
	case SessionInteractive, SessionOneShot:
		return true
	}
	return false
}

// RecipeActionKind tags what, if anything, happened to a recipe as a
// result of a session.
type RecipeActionKind string

const (
	RecipeActionNone    RecipeActionKind = "none"
	RecipeActionCreated RecipeActionKind = "created"
	RecipeActionUpdated RecipeActionKind = "updated"
	RecipeActionReused  RecipeActionKind = "reused"
	RecipeActionDraft   RecipeActionKind = "draft"
)

// RecipeAction records the recipe-lifecycle side effect of a session.
type RecipeAction struct {
	Kind     RecipeActionKind `json:"kind"`
	RecipeID string           `json:"recipe_id,omitempty"`
}

// IntentSummary is the translator's compact plan summary.
type IntentSummary struct {
	Intent               string   `json:"intent"`
	Targets              []string `json:"targets"`
	Risk                 string   `json:"risk"`
	ClarificationNeeded  bool     `json:"clarification_needed"`
}

// ToolUsage records one catalog tool invoked during a session.
type ToolUsage struct {
	ToolID     string `json:"tool_id"`
	IsMutation bool   `json:"is_mutation"`
	Success    bool   `json:"success"`
}

// SessionRecord is the compact summary of a completed session, appended
// to sessions.jsonl.
type SessionRecord struct {
	MemoryID              string        `json:"memory_id"`
	Timestamp              time.Time     `json:"timestamp"`
	RequestText            string        `json:"request_text"`
	IntentSummary          IntentSummary `json:"intent_summary"`
	ToolsUsed              []ToolUsage   `json:"tools_used"`
	EvidenceIDsReferenced  []string      `json:"evidence_ids_referenced"`
	AnswerSummary          string        `json:"answer_summary"`
	ReliabilityScore       float64       `json:"reliability_score"`
	CritiqueText           string        `json:"critique_text,omitempty"`
	RecipeAction           RecipeAction  `json:"recipe_action"`
	SessionType            SessionType   `json:"session_type"`
	Success                bool          `json:"success"`
	DurationMS             int64         `json:"duration_ms"`
	SchemaVersion          int           `json:"schema_version"`
}

const schemaVersion = 1

// NewSessionRecord starts a blank record for requestText; the caller fills
// in the remaining fields as the session progresses and Store()s it at the
// end.
func NewSessionRecord(id, requestText string, kind SessionType) SessionRecord {
	return SessionRecord{
		MemoryID:      id,
		Timestamp:     time.Now(),
		RequestText:   requestText,
		IntentSummary: IntentSummary{Risk: "unknown"},
		RecipeAction:  RecipeAction{Kind: RecipeActionNone},
		SessionType:   kind,
		SchemaVersion: schemaVersion,
	}
}
