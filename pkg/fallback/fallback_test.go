package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/evidence"
	"github.com/codeready-toolchain/annad/pkg/facts"
)

func TestMatchIntent(t *testing.T) {
	intent, ok := MatchIntent("how much ram do I have?")
	require.True(t, ok)
	assert.Equal(t, IntentHardware, intent)

	_, ok = MatchIntent("tell me a joke")
	assert.False(t, ok)
}

func TestHardwareFallbackUsesCachedFact(t *testing.T) {
	ev := evidence.NewStore(0, 0)
	fc := facts.NewCache(t.TempDir())
	defer fc.Close()

	_, err := fc.Upsert(context.Background(), "total_ram", "16 GiB", "MemTotal: 16384 MB", catalog.FreshnessVolatile)
	require.NoError(t, err)
	_, err = ev.Add(evidence.SourceLearnedFact, "learned fact total_ram", "16 GiB (MemTotal: 16384 MB)", 0, false)
	require.NoError(t, err)

	answer := Answer("how much ram do I have?", ev, fc)
	require.NotNil(t, answer)
	assert.Contains(t, answer.Answer, "16 GiB")
	assert.NotEmpty(t, answer.EvidenceRefs)
}

func TestHardwareFallbackDeclinesWithoutFact(t *testing.T) {
	ev := evidence.NewStore(0, 0)
	fc := facts.NewCache(t.TempDir())
	defer fc.Close()

	answer := Answer("how much ram do I have?", ev, fc)
	assert.Nil(t, answer)
}

func TestServiceFallbackReadsEvidence(t *testing.T) {
	ev := evidence.NewStore(0, 0)
	fc := facts.NewCache(t.TempDir())
	defer fc.Close()

	_, err := ev.Add(evidence.Source("svc.failed"), "failed units", "nginx.service loaded failed failed Web server\n", 0, false)
	require.NoError(t, err)

	answer := Answer("are there any failed services?", ev, fc)
	require.NotNil(t, answer)
	assert.Contains(t, answer.Answer, "nginx.service")
}
