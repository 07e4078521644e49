package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultOutputCap is the byte cap applied to both stdout and stderr.
const DefaultOutputCap = 64 * 1024

// DefaultTimeout is the per-kind timeout for everything but heavy entries.
const DefaultTimeout = 30 * time.Second

// HeavyTimeout is the per-kind timeout for heavy entries.
const HeavyTimeout = 120 * time.Second

// ErrNotInCatalog names the unknown-tool_id condition. Execute does not
// return it: an unknown tool_id comes back as a Result with
// StatusNotInCatalog and a nil error.
var ErrNotInCatalog = errors.New("catalog: tool_id not in catalog")

// Executor is the sole bridge between core logic and the host. It accepts
// only tool_ids present in its Registry, runs the fixed binary/argv prefix
// plus any thinker-supplied extra arguments under a bounded subprocess,
// and classifies the outcome.
type Executor struct {
	registry   *Registry
	outputCap  int
	defaultTO  time.Duration
	heavyTO    time.Duration

	heavyMu    sync.Mutex
	heavySlots chan struct{} // admits at most heavyConcurrency heavy executions at a time (one by default)

	runCommand func(ctx context.Context, name string, args []string) (*exec.Cmd, io.ReadCloser, io.ReadCloser, error)
}

// NewExecutor builds an Executor over the given registry. heavyConcurrency
// bounds simultaneous `heavy`-kind executions (default 1 when <= 0),
// mirroring the per-tool_id concurrency cap described below.
func NewExecutor(registry *Registry, heavyConcurrency int) *Executor {
	if heavyConcurrency <= 0 {
		heavyConcurrency = 1
	}
	return &Executor{
		registry:     registry,
		outputCap:    DefaultOutputCap,
		defaultTO:    DefaultTimeout,
		heavyTO:      HeavyTimeout,
		heavySlots:   make(chan struct{}, heavyConcurrency),
	}
}

// Execute runs tool_id with extraArgs appended to its fixed argv prefix.
// It never returns a Go error for host-level failure; all such failures
// are represented in the returned Result so the orchestrator can record
// them as ordinary evidence.
func (e *Executor) Execute(ctx context.Context, toolID string, extraArgs []string) (*Result, error) {
	spec, ok := e.registry.Lookup(toolID)
	if !ok {
		return &Result{
			ToolID:   toolID,
			ExitCode: -1,
			Stderr:   fmt.Sprintf("tool_id %q is not in the catalog", toolID),
			Status:   StatusNotInCatalog,
		}, nil
	}

	if spec.Kind == KindHeavy {
		select {
		case e.heavySlots <- struct{}{}:
			defer func() { <-e.heavySlots }()
		case <-ctx.Done():
			return nil, fmt.Errorf("catalog: waiting for heavy-kind slot: %w", ctx.Err())
		}
	}

	timeout := e.defaultTO
	if spec.Kind == KindHeavy {
		timeout = e.heavyTO
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, spec.ArgvPrefix...), extraArgs...)
	start := time.Now()
	cmd := exec.CommandContext(execCtx, spec.Binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return osErrorResult(spec, args, start, err), nil
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return osErrorResult(spec, args, start, err), nil
	}

	if err := cmd.Start(); err != nil {
		return classifyStartError(spec, args, start, err), nil
	}

	// Drain both streams concurrently so a subprocess that fills one pipe
	// cannot block the other; each execution owns its subprocess exclusively
	// until both streams are drained and Wait returns.
	g, _ := errgroup.WithContext(execCtx)
	var stdoutTrunc, stderrTrunc bool
	g.Go(func() error {
		var err error
		stdoutTrunc, err = copyCapped(&stdoutBuf, stdoutPipe, e.outputCap)
		return err
	})
	g.Go(func() error {
		var err error
		stderrTrunc, err = copyCapped(&stderrBuf, stderrPipe, e.outputCap)
		return err
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()
	duration := time.Since(start)

	if drainErr != nil {
		slog.Warn("catalog: error draining subprocess output", "tool_id", toolID, "error", drainErr)
	}

	if execCtx.Err() == context.DeadlineExceeded {
		return &Result{
			ToolID:      toolID,
			FullCommand: fullCommand(spec.Binary, args),
			ExitCode:    -1,
			Stdout:      stdoutBuf.String(),
			Stderr:      stderrBuf.String(),
			StdoutTruncated: stdoutTrunc,
			StderrTruncated: stderrTrunc,
			DurationMS:  duration.Milliseconds(),
			Status:      StatusTimeout,
		}, nil
	}

	exitCode := 0
	status := StatusSuccess
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			status = classifyExit(exitCode, stderrBuf.String())
		} else {
			return osErrorResult(spec, args, start, waitErr), nil
		}
	}

	return &Result{
		ToolID:          toolID,
		FullCommand:     fullCommand(spec.Binary, args),
		ExitCode:        exitCode,
		Stdout:          stdoutBuf.String(),
		Stderr:          stderrBuf.String(),
		StdoutTruncated: stdoutTrunc,
		StderrTruncated: stderrTrunc,
		DurationMS:      duration.Milliseconds(),
		Status:          status,
	}, nil
}

// Parse runs the registered learner for toolID, if any, against stdout.
func (e *Executor) Parse(toolID, stdout string) []ParsedFact {
	spec, ok := e.registry.Lookup(toolID)
	if !ok || spec.Parse == nil {
		return nil
	}
	return spec.Parse(stdout)
}

// SelfTest executes every Required catalog entry and aggregates a health
// report. The required set includes a stdout-identity probe, a filesystem
// read, and a memory probe.
func (e *Executor) SelfTest(ctx context.Context) (*HealthReport, error) {
	report := &HealthReport{At: time.Now()}
	criticalMissing := false
	anyMissing := false

	for _, spec := range e.registry.Required() {
		res, err := e.Execute(ctx, spec.ToolID, nil)
		if err != nil {
			return nil, fmt.Errorf("catalog: self-test failed to execute %q: %w", spec.ToolID, err)
		}
		available := res.Status == StatusSuccess
		if !available {
			anyMissing = true
			if spec.ToolID == "sys.echo" || spec.ToolID == "fs.root" || spec.ToolID == "mem.free" {
				criticalMissing = true
			}
		}
		report.PerTool = append(report.PerTool, ToolHealth{
			ID:           spec.ToolID,
			Available:    available,
			LastExitCode: res.ExitCode,
			Message:      string(res.Status),
		})
	}

	switch {
	case criticalMissing:
		report.Status = "critical"
	case anyMissing:
		report.Status = "degraded"
	default:
		report.Status = "healthy"
	}
	return report, nil
}

func copyCapped(dst *bytes.Buffer, src io.Reader, cap int) (truncated bool, err error) {
	limited := io.LimitReader(src, int64(cap)+1)
	n, err := io.Copy(dst, limited)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if n > int64(cap) {
		dst.Truncate(cap)
		truncated = true
	}
	// Drain any remainder so the subprocess is never blocked on a full pipe.
	_, _ = io.Copy(io.Discard, src)
	return truncated, nil
}

func fullCommand(binary string, args []string) string {
	return strings.TrimSpace(binary + " " + strings.Join(args, " "))
}

func classifyExit(exitCode int, stderr string) Status {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "command not found"), strings.Contains(lower, "no such file or directory"):
		return StatusCommandNotFound
	case strings.Contains(lower, "permission denied"):
		return StatusPermissionDenied
	default:
		return StatusNonZeroExit
	}
}

func classifyStartError(spec Spec, args []string, start time.Time, err error) *Result {
	lower := strings.ToLower(err.Error())
	status := StatusOSError
	switch {
	case errors.Is(err, exec.ErrNotFound), strings.Contains(lower, "no such file or directory"):
		status = StatusCommandNotFound
	case strings.Contains(lower, "permission denied"):
		status = StatusPermissionDenied
	}
	return &Result{
		ToolID:      spec.ToolID,
		FullCommand: fullCommand(spec.Binary, args),
		ExitCode:    -1,
		Stderr:      err.Error(),
		DurationMS:  time.Since(start).Milliseconds(),
		Status:      status,
	}
}

func osErrorResult(spec Spec, args []string, start time.Time, err error) *Result {
	return &Result{
		ToolID:      spec.ToolID,
		FullCommand: fullCommand(spec.Binary, args),
		ExitCode:    -1,
		Stderr:      err.Error(),
		DurationMS:  time.Since(start).Milliseconds(),
		Status:      StatusOSError,
	}
}
