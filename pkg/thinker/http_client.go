package thinker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SystemPrompt is the fixed instruction string sent with every request. It
// and OutputSchema are part of the core, not configuration.
const SystemPrompt = `You are the reasoning component of a local system-diagnostic agent named Anna.
You are given the user's question, the evidence collected so far, and the
catalog of read-only probes you may request. Respond with exactly one JSON
object matching the given schema: either decide_tool (request one probe),
final_answer (conclude, citing evidence ids), or ask_user (request missing
information from the user). Never fabricate a tool_id outside the catalog.
Never claim a fact without a supporting evidence id.`

// OutputSchema is the fixed JSON Schema describing the Step envelope.
const OutputSchema = `{
  "type": "object",
  "properties": {
    "kind": {"type": "string", "enum": ["decide_tool", "final_answer", "ask_user"]},
    "decide_tool": {"type": "object", "properties": {
      "tool_id": {"type": "string"}, "arguments": {"type": "array", "items": {"type": "string"}}, "why": {"type": "string"}
    }},
    "final_answer": {"type": "object", "properties": {
      "answer": {"type": "string"}, "evidence_refs": {"type": "array", "items": {"type": "string"}},
      "reliability": {"type": "number"}, "reasoning": {"type": "string"}
    }},
    "ask_user": {"type": "object", "properties": {"user_question": {"type": "string"}}}
  },
  "required": ["kind"]
}`

// requestEnvelope is the wire shape of the opaque JSON chat endpoint.
type requestEnvelope struct {
	SystemPrompt     string `json:"system_prompt"`
	UserStateMessage string `json:"user_state_message"`
	OutputSchema     string `json:"output_schema"`
}

// HTTPClient implements Thinker by POSTing to a local HTTP endpoint and
// parsing a JSON Step from the response body. This is a deliberate
// transport departure from the streaming gRPC client pattern the rest of
// the ambient stack is modeled on — the thinker must be reachable over
// plain local HTTP with a JSON request/response, not gRPC.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient constructs an HTTPClient against endpoint (e.g.
// "http://127.0.0.1:8765/v1/ask"), with the given request timeout.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Ask implements Thinker.
func (c *HTTPClient) Ask(ctx context.Context, state State) (Step, error) {
	body, err := json.Marshal(requestEnvelope{
		SystemPrompt:     SystemPrompt,
		UserStateMessage: renderUserState(state),
		OutputSchema:     OutputSchema,
	})
	if err != nil {
		return Step{}, fmt.Errorf("thinker: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Step{}, fmt.Errorf("thinker: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Step{}, fmt.Errorf("%w: reading response body: %v", ErrUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Step{}, fmt.Errorf("%w: status %d: %s", ErrUnreachable, resp.StatusCode, string(raw))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Step{}, ErrEmpty
	}

	var step Step
	if err := json.Unmarshal(raw, &step); err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			return Step{}, err // already wrapped by Step.UnmarshalJSON
		}
		return Step{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return step, nil
}

func renderUserState(state State) string {
	return fmt.Sprintf(
		"QUERY: %s\nITERATION: %d\nEVIDENCE:\n%s\nCATALOG:\n%s\n",
		state.Query, state.Iteration, state.EvidenceText, state.CatalogText,
	)
}
