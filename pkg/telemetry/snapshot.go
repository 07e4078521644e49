// Package telemetry assembles the pre-collected baseline that seeds every
// session as evidence E0.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/annad/pkg/catalog"
)

// baselineToolIDs are the cheap, non-heavy catalog entries run
// synchronously at session start: kernel line and CPU (static), memory
// and failed units (volatile). Every other entry is left to the
// orchestrator loop to fetch on demand.
var baselineToolIDs = []string{
	"sys.uname",
	"mem.free",
	"cpu.lscpu",
	"svc.failed",
}

// Snapshot is the structured baseline record. Content is rendered as a
// single text blob so it fits the evidence store's content field; fields
// are kept separately for direct reality-check comparison.
type Snapshot struct {
	UnameLine     string
	FreeOutput    string
	CPUModel      string
	FailedUnits   []string
	ToolsRun      []string
	ToolsFailed   []string
}

// Collect runs the baseline catalog entries and assembles a Snapshot. It
// never fails outright: a failing baseline entry is recorded as a missing
// field rather than aborting session start, matching the catalog's own
// failure-as-evidence philosophy.
func Collect(ctx context.Context, exec *catalog.Executor) *Snapshot {
	snap := &Snapshot{}
	for _, toolID := range baselineToolIDs {
		res, err := exec.Execute(ctx, toolID, nil)
		if err != nil || res.Status != catalog.StatusSuccess {
			snap.ToolsFailed = append(snap.ToolsFailed, toolID)
			continue
		}
		snap.ToolsRun = append(snap.ToolsRun, toolID)
		switch toolID {
		case "sys.uname":
			snap.UnameLine = strings.TrimSpace(res.Stdout)
		case "mem.free":
			snap.FreeOutput = strings.TrimSpace(res.Stdout)
		case "cpu.lscpu":
			for _, fact := range exec.Parse(toolID, res.Stdout) {
				if fact.Category == "cpu_model" {
					snap.CPUModel = fact.Value
				}
			}
		case "svc.failed":
			snap.FailedUnits = parseFailedUnits(res.Stdout)
		}
	}
	return snap
}

// Render produces the plain-text content stored as evidence E0.
func (s *Snapshot) Render() string {
	var b strings.Builder
	if s.UnameLine != "" {
		fmt.Fprintf(&b, "uname: %s\n", s.UnameLine)
	}
	if s.CPUModel != "" {
		fmt.Fprintf(&b, "cpu: %s\n", s.CPUModel)
	}
	if s.FreeOutput != "" {
		fmt.Fprintf(&b, "memory:\n%s\n", s.FreeOutput)
	}
	if len(s.FailedUnits) > 0 {
		fmt.Fprintf(&b, "failed units: %s\n", strings.Join(s.FailedUnits, ", "))
	} else {
		b.WriteString("failed units: none\n")
	}
	if len(s.ToolsFailed) > 0 {
		fmt.Fprintf(&b, "baseline probes unavailable: %s\n", strings.Join(s.ToolsFailed, ", "))
	}
	return b.String()
}

func parseFailedUnits(stdout string) []string {
	var units []string
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasSuffix(fields[0], ".service") || strings.HasSuffix(fields[0], ".mount") ||
			strings.HasSuffix(fields[0], ".timer") || strings.HasSuffix(fields[0], ".socket") {
			units = append(units, fields[0])
		}
	}
	return units
}
