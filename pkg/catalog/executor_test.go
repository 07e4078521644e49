package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Spec{
		{ToolID: "test.echo", Binary: "echo", ArgvPrefix: []string{"hello"}, Kind: KindStateless, Required: true, Freshness: FreshnessStatic},
		{ToolID: "test.false", Binary: "false", Kind: KindStateless, Freshness: FreshnessStatic},
		{ToolID: "test.missing", Binary: "definitely-not-a-real-binary-xyz", Kind: KindStateless, Freshness: FreshnessStatic},
		{ToolID: "test.sleep", Binary: "sleep", ArgvPrefix: []string{"5"}, Kind: KindStateless, Freshness: FreshnessStatic},
	})
	require.NoError(t, err)
	return r
}

func TestExecuteRejectsUnknownToolID(t *testing.T) {
	e := NewExecutor(testRegistry(t), 1)
	res, err := e.Execute(context.Background(), "not.a.real.tool", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNotInCatalog, res.Status)
}

func TestExecuteSuccess(t *testing.T) {
	e := NewExecutor(testRegistry(t), 1)
	res, err := e.Execute(context.Background(), "test.echo", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "hello")
}

func TestExecuteNonZeroExit(t *testing.T) {
	e := NewExecutor(testRegistry(t), 1)
	res, err := e.Execute(context.Background(), "test.false", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNonZeroExit, res.Status)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestExecuteCommandNotFound(t *testing.T) {
	e := NewExecutor(testRegistry(t), 1)
	res, err := e.Execute(context.Background(), "test.missing", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCommandNotFound, res.Status)
}

func TestExecuteTimeout(t *testing.T) {
	e := NewExecutor(testRegistry(t), 1)
	e.defaultTO = 50 * time.Millisecond
	res, err := e.Execute(context.Background(), "test.sleep", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, res.Status)
}

func TestSelfTestAggregatesHealth(t *testing.T) {
	e := NewExecutor(testRegistry(t), 1)
	report, err := e.SelfTest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", report.Status)
	require.Len(t, report.PerTool, 1)
	assert.True(t, report.PerTool[0].Available)
}

func TestTruncationMarking(t *testing.T) {
	r, err := NewRegistry([]Spec{
		{ToolID: "test.yes", Binary: "yes", Kind: KindStateless, Freshness: FreshnessStatic},
	})
	require.NoError(t, err)
	e := NewExecutor(r, 1)
	e.outputCap = 16
	e.defaultTO = 200 * time.Millisecond
	res, err := e.Execute(context.Background(), "test.yes", nil)
	require.NoError(t, err)
	assert.True(t, res.StdoutTruncated)
	assert.LessOrEqual(t, len(res.Stdout), 16)
}

func TestParseLearnerCategories(t *testing.T) {
	r, err := NewRegistry(Table)
	require.NoError(t, err)
	e := NewExecutor(r, 1)

	facts := e.Parse("mem.free", "              total        used        free\nMem:          16384        4096       10000\n")
	require.Len(t, facts, 1)
	assert.Equal(t, "total_ram", facts[0].Category)
	assert.Equal(t, "16384 MB", facts[0].Value)

	facts = e.Parse("pkg.query", "local/steam 1:1.0.0.81-1\n")
	require.Len(t, facts, 1)
	assert.Equal(t, "package:steam", facts[0].Category)
}

func TestRegistryRejectsDuplicateToolID(t *testing.T) {
	_, err := NewRegistry([]Spec{
		{ToolID: "dup", Binary: "echo", Kind: KindStateless, Freshness: FreshnessStatic},
		{ToolID: "dup", Binary: "echo", Kind: KindStateless, Freshness: FreshnessStatic},
	})
	require.Error(t, err)
}
