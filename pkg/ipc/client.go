package ipc

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/annad/pkg/presenter"
)

// Client is a minimal synchronous IPC client, used by integration tests
// and available to a future CLI front-end. One Client owns one
// connection; concurrent calls from multiple goroutines are not
// supported (matching the server's one-request-in-flight-per-connection
// discipline).
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// Dial connects to the Unix socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", socketPath, err)
	}
	return &Client{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// call sends one non-streaming request and decodes its response.
func (c *Client) call(method Method, params any, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("ipc: encode %s params: %w", method, err)
	}
	req := Request{ID: uuid.New().String(), Method: method, Params: raw}
	if err := c.enc.Encode(req); err != nil {
		return fmt.Errorf("ipc: send %s: %w", method, err)
	}

	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return fmt.Errorf("ipc: receive %s response: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("ipc: %s: %s (%s)", method, resp.Error.Message, resp.Error.Kind)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

// AnswerQuery sends an AnswerQuery request and decodes its AnswerRecord.
func (c *Client) AnswerQuery(text, sessionKind string) (result presenter.Record, err error) {
	err = c.call(MethodAnswerQuery, AnswerQueryParams{Text: text, SessionKind: sessionKind}, &result)
	return result, err
}

// ListMemory sends a ListMemory request.
func (c *Client) ListMemory(params ListMemoryParams) (ListMemoryResult, error) {
	var out ListMemoryResult
	err := c.call(MethodListMemory, params, &out)
	return out, err
}

// ListRecipes sends a ListRecipes request.
func (c *Client) ListRecipes(limit int) (ListRecipesResult, error) {
	var out ListRecipesResult
	err := c.call(MethodListRecipes, ListRecipesParams{Limit: limit}, &out)
	return out, err
}

// ProposeMutation sends a ProposeMutation request.
func (c *Client) ProposeMutation(planID string) (ProposeMutationResult, error) {
	var out ProposeMutationResult
	err := c.call(MethodProposeMutation, ProposeMutationParams{PlanID: planID}, &out)
	return out, err
}

// ConfirmMutation sends a ConfirmMutation request.
func (c *Client) ConfirmMutation(planID, phrase string) (ConfirmMutationResult, error) {
	var out ConfirmMutationResult
	err := c.call(MethodConfirmMutation, ConfirmMutationParams{PlanID: planID, Phrase: phrase}, &out)
	return out, err
}

// SelfTest sends a SelfTest request.
func (c *Client) SelfTest() (SelfTestResult, error) {
	var out SelfTestResult
	err := c.call(MethodSelfTest, struct{}{}, &out)
	return out, err
}

// StreamAnswerQuery sends an AnswerQueryStreamed request and relays every
// StreamFrame it receives onto frames until the terminal End/Error frame
// arrives (which is itself forwarded, then the channel is closed).
func (c *Client) StreamAnswerQuery(text string, frames chan<- StreamFrame) error {
	defer close(frames)
	raw, err := json.Marshal(AnswerQueryParams{Text: text})
	if err != nil {
		return fmt.Errorf("ipc: encode AnswerQueryStreamed params: %w", err)
	}
	req := Request{ID: uuid.New().String(), Method: MethodAnswerQueryStreamed, Params: raw}
	if err := c.enc.Encode(req); err != nil {
		return fmt.Errorf("ipc: send AnswerQueryStreamed: %w", err)
	}

	for {
		var frame StreamFrame
		if err := c.dec.Decode(&frame); err != nil {
			return fmt.Errorf("ipc: receive stream frame: %w", err)
		}
		frames <- frame
		if frame.End != nil || frame.Error != nil {
			return nil
		}
	}
}
