package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/codeready-toolchain/annad/pkg/presenter"
	"github.com/codeready-toolchain/annad/pkg/safety"
)

// Server listens on a Unix domain socket and dispatches each decoded
// Request to a Handler. One goroutine per connection; within a
// connection, requests are served sequentially in arrival order (a
// client that wants concurrent in-flight calls opens more than one
// connection).
type Server struct {
	socketPath string
	handler    Handler

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer constructs a Server bound to socketPath. The socket file is
// removed and recreated on Listen; a stale socket left by an unclean
// shutdown must not prevent rebinding.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{socketPath: socketPath, handler: handler}
}

// Listen binds the Unix socket. Failing to bind is a fatal, daemon-wide
// condition — the caller should treat a non-nil error as cause to abort
// startup.
func (s *Server) Listen() error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ipc: removing stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("ipc: binding socket %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed. It blocks; call it from its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("ipc: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("ipc: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close closes the listener; in-flight connections are left to finish
// (Serve's ctx cancellation is the cooperative shutdown path).
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return // EOF or malformed stream: drop the connection silently
		}

		if req.Method == MethodAnswerQueryStreamed {
			s.handleStreamed(ctx, req, enc)
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	result, err := s.invoke(ctx, req)
	if err != nil {
		return Response{ID: req.ID, Error: toErrorObject(err)}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{ID: req.ID, Error: &ErrorObject{Kind: "internal", Message: err.Error()}}
	}
	return Response{ID: req.ID, Result: raw}
}

func (s *Server) invoke(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case MethodAnswerQuery:
		var p AnswerQueryParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("ipc: decode AnswerQuery params: %w", err)
		}
		rec, err := s.handler.AnswerQuery(ctx, p.Text, p.SessionKind)
		if err != nil {
			return nil, err
		}
		return rec, nil

	case MethodListMemory:
		var p ListMemoryParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("ipc: decode ListMemory params: %w", err)
		}
		sessions, err := s.handler.ListMemory(ctx, p.Since, p.Keyword, p.Limit)
		if err != nil {
			return nil, err
		}
		return ListMemoryResult{Sessions: sessions}, nil

	case MethodListRecipes:
		var p ListRecipesParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("ipc: decode ListRecipes params: %w", err)
		}
		recipes, err := s.handler.ListRecipes(ctx, p.Limit)
		if err != nil {
			return nil, err
		}
		return ListRecipesResult{Recipes: recipes}, nil

	case MethodProposeMutation:
		var p ProposeMutationParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("ipc: decode ProposeMutation params: %w", err)
		}
		pm, err := s.handler.ProposeMutation(ctx, p.PlanID)
		if err != nil {
			return nil, err
		}
		return ProposeMutationResult{Mutation: pm}, nil

	case MethodConfirmMutation:
		var p ConfirmMutationParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("ipc: decode ConfirmMutation params: %w", err)
		}
		success, message, err := s.handler.ConfirmMutation(ctx, p.PlanID, p.Phrase)
		if err != nil {
			return nil, err
		}
		return ConfirmMutationResult{Success: success, Message: message}, nil

	case MethodSelfTest:
		report, err := s.handler.SelfTest(ctx)
		if err != nil {
			return nil, err
		}
		return SelfTestResult{Report: report}, nil

	default:
		return nil, fmt.Errorf("ipc: unknown method %q", req.Method)
	}
}

// handleStreamed runs AnswerQueryStreamed, relaying Chunks to the
// connection as they arrive and finishing with an End (or Error) frame.
// The handler runs in its own goroutine and writes into a 32-slot buffered
// channel; this goroutine relays each Chunk until the handler returns and
// the channel is closed, then writes the terminal frame.
func (s *Server) handleStreamed(ctx context.Context, req Request, enc *json.Encoder) {
	var p AnswerQueryParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		enc.Encode(StreamFrame{ID: req.ID, Error: toErrorObject(fmt.Errorf("ipc: decode AnswerQueryStreamed params: %w", err))})
		return
	}

	progress := make(chan Chunk, 32)
	done := make(chan struct{})
	var finalRec presenter.Record
	var finalErr error

	go func() {
		defer close(done)
		rec, err := s.handler.AnswerQueryStreamed(ctx, p.Text, progress)
		finalRec, finalErr = rec, err
	}()

	go func() {
		<-done
		close(progress)
	}()

	for ch := range progress {
		chCopy := ch
		if err := enc.Encode(StreamFrame{ID: req.ID, Chunk: &chCopy}); err != nil {
			return
		}
	}

	if finalErr != nil {
		enc.Encode(StreamFrame{ID: req.ID, Error: toErrorObject(finalErr)})
		return
	}
	enc.Encode(StreamFrame{ID: req.ID, End: &finalRec})
}

// toErrorObject maps a known sentinel error to its taxonomy kind; unknown
// errors are reported as "internal" without leaking their Go type.
func toErrorObject(err error) *ErrorObject {
	kind := "internal"
	switch {
	case errors.Is(err, safety.ErrPhraseMismatch):
		kind = "phrase_mismatch"
	case errors.Is(err, safety.ErrExpired):
		kind = "expired"
	case errors.Is(err, safety.ErrVetoFromRealityCheck):
		kind = "veto_from_reality_check"
	case errors.Is(err, safety.ErrMissingRollback):
		kind = "missing_rollback"
	case errors.Is(err, safety.ErrUnknownPlan):
		kind = "not_found"
	case errors.Is(err, safety.ErrUnknownMutationKind):
		kind = "not_found"
	}
	if kind == "internal" {
		slog.Error("ipc: internal error serving request", "error", err)
	}
	return &ErrorObject{Kind: kind, Message: err.Error()}
}
