package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecipeAboveThresholdIsNotDraft(t *testing.T) {
	rs, err := NewRecipeStore(t.TempDir())
	require.NoError(t, err)

	r, err := rs.Create("check ram", "reports total RAM", []string{"ram", "memory"}, []Step{{ToolID: "mem.free"}}, false)
	require.NoError(t, err)
	assert.False(t, r.Draft)
	assert.Equal(t, RecipeCreateThreshold, r.Confidence)
}

func TestCreateDraftRecipe(t *testing.T) {
	rs, err := NewRecipeStore(t.TempDir())
	require.NoError(t, err)

	r, err := rs.Create("maybe gpu check", "uncertain gpu lookup", []string{"gpu"}, []Step{{ToolID: "lspci.gpu"}}, true)
	require.NoError(t, err)
	assert.True(t, r.Draft)
	assert.Equal(t, RecipeDraftFloor, r.Confidence)
}

func TestFindByIntentMatchesKeywords(t *testing.T) {
	rs, err := NewRecipeStore(t.TempDir())
	require.NoError(t, err)
	_, err = rs.Create("check ram", "reports total RAM", []string{"ram", "memory"}, []Step{{ToolID: "mem.free"}}, false)
	require.NoError(t, err)

	r, ok := rs.FindByIntent("how much memory do I have")
	require.True(t, ok)
	assert.Equal(t, "check ram", r.Name)

	_, ok = rs.FindByIntent("completely unrelated query")
	assert.False(t, ok)
}

func TestRecordReusePromotesDraft(t *testing.T) {
	rs, err := NewRecipeStore(t.TempDir())
	require.NoError(t, err)
	r, err := rs.Create("maybe", "draft", []string{"x"}, nil, true)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		r, err = rs.RecordReuse(r.RecipeID)
		require.NoError(t, err)
	}
	assert.False(t, r.Draft)
	assert.Equal(t, 10, r.SuccessCount)
}

func TestRecordMismatchDowngradesConfidence(t *testing.T) {
	rs, err := NewRecipeStore(t.TempDir())
	require.NoError(t, err)
	r, err := rs.Create("flaky", "sometimes wrong", []string{"x"}, nil, false)
	require.NoError(t, err)

	before := r.Confidence
	r, err = rs.RecordMismatch(r.RecipeID)
	require.NoError(t, err)
	assert.Less(t, r.Confidence, before)
}

func TestArchiveRecipeRemovesFromLiveSet(t *testing.T) {
	rs, err := NewRecipeStore(t.TempDir())
	require.NoError(t, err)
	r, err := rs.Create("x", "y", nil, nil, false)
	require.NoError(t, err)

	ok, err := rs.Archive(r.RecipeID, "repeated_mismatch")
	require.NoError(t, err)
	assert.True(t, ok)

	_, stillThere := rs.Get(r.RecipeID)
	assert.False(t, stillThere)
}
