package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUsesDefaultsWhenYAMLAbsent(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/anna", cfg.StateDir)
	assert.Equal(t, 8, cfg.Limits.MaxIterations)
}

func TestInitializeMergesUserYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
state_dir: /tmp/anna-test
limits:
  max_iterations: 12
thinker:
  endpoint: http://127.0.0.1:9999/ask
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anna.yaml"), []byte(yaml), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/anna-test", cfg.StateDir)
	assert.Equal(t, 12, cfg.Limits.MaxIterations)
	assert.Equal(t, "http://127.0.0.1:9999/ask", cfg.Thinker.Endpoint)
	// unspecified fields keep the built-in default
	assert.Equal(t, 64*1024, cfg.Limits.OutputCapBytes)
}

func TestInitializeExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANNA_TEST_ENDPOINT", "http://127.0.0.1:7777/ask")
	yaml := `
thinker:
  endpoint: ${ANNA_TEST_ENDPOINT}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anna.yaml"), []byte(yaml), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:7777/ask", cfg.Thinker.Endpoint)
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anna.yaml"), []byte("not: [valid"), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitializeRejectsInvalidLimits(t *testing.T) {
	dir := t.TempDir()
	yaml := `
limits:
  max_iterations: -1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anna.yaml"), []byte(yaml), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
