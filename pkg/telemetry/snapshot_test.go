package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/annad/pkg/catalog"
)

func TestCollectRendersBaseline(t *testing.T) {
	reg, err := catalog.NewRegistry(catalog.Table)
	require.NoError(t, err)
	exec := catalog.NewExecutor(reg, 1)

	snap := Collect(context.Background(), exec)
	text := snap.Render()
	assert.Contains(t, text, "failed units")
}

func TestParseFailedUnits(t *testing.T) {
	units := parseFailedUnits("UNIT             LOAD   ACTIVE SUB    DESCRIPTION\nnginx.service    loaded failed failed Web server\n")
	assert.Equal(t, []string{"nginx.service"}, units)
}
