package facts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/annad/pkg/catalog"
)

func TestUpsertReplacesInPlace(t *testing.T) {
	c := NewCache(t.TempDir())
	defer c.Close()

	ctx := context.Background()
	first, err := c.Upsert(ctx, "total_ram", "16 GiB", "MemTotal: 16384 MB", catalog.FreshnessVolatile)
	require.NoError(t, err)

	second, err := c.Upsert(ctx, "total_ram", "32 GiB", "MemTotal: 32768 MB", catalog.FreshnessVolatile)
	require.NoError(t, err)

	assert.True(t, second.LearnedAt.After(first.LearnedAt) || second.LearnedAt.Equal(first.LearnedAt))

	got, ok := c.Get("total_ram")
	require.True(t, ok)
	assert.Equal(t, "32 GiB", got.Value)
	assert.Len(t, c.All(), 1)
}

func TestInvalidateOnHostChangeDropsSlowAndVolatile(t *testing.T) {
	c := NewCache(t.TempDir())
	defer c.Close()
	ctx := context.Background()

	_, err := c.Upsert(ctx, "cpu_model", "Ryzen 9", "Model name: Ryzen 9", catalog.FreshnessStatic)
	require.NoError(t, err)
	_, err = c.Upsert(ctx, "total_ram", "16 GiB", "MemTotal: 16384 MB", catalog.FreshnessVolatile)
	require.NoError(t, err)

	changed, err := c.InvalidateOnHostChange(HostSignals{BootID: "boot-1"})
	require.NoError(t, err)
	assert.True(t, changed)

	_, ok := c.Get("cpu_model")
	assert.True(t, ok)
	_, ok = c.Get("total_ram")
	assert.False(t, ok)

	changed, err = c.InvalidateOnHostChange(HostSignals{BootID: "boot-1"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMatchCategoriesKeywords(t *testing.T) {
	assert.Equal(t, []string{"total_ram"}, MatchCategories("how much ram do I have?"))
	assert.ElementsMatch(t, []string{"cpu_model", "cpu_cores", "cpu_threads"}, MatchCategories("what cpu is this?"))
	assert.Empty(t, MatchCategories("is my network broken?"))
}

func TestMatchPackageCategory(t *testing.T) {
	cat, ok := MatchPackageCategory("is steam installed?")
	require.True(t, ok)
	assert.Equal(t, "package:steam", cat)

	_, ok = MatchPackageCategory("how much ram?")
	assert.False(t, ok)
}
