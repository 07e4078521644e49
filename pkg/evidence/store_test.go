package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddProducesDenseIncreasingIDs(t *testing.T) {
	s := NewStore(0, 0)
	id0, err := s.Add(SourceTelemetry, "baseline", "ok", 0, false)
	require.NoError(t, err)
	id1, err := s.Add(Source("mem.free"), "memory", "16384", 0, false)
	require.NoError(t, err)

	assert.Equal(t, "E0", id0)
	assert.Equal(t, "E1", id1)

	ids := make([]string, 0)
	for _, e := range s.Iter() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"E0", "E1"}, ids)
}

func TestAddEnforcesMaxItems(t *testing.T) {
	s := NewStore(1, 0)
	_, err := s.Add(SourceTelemetry, "first", "x", 0, false)
	require.NoError(t, err)
	_, err = s.Add(SourceTelemetry, "second", "y", 0, false)
	assert.Error(t, err)
}

func TestAddMarksStoreTruncation(t *testing.T) {
	s := NewStore(0, 4)
	id, err := s.Add(Source("disk.df"), "big", "0123456789", 0, false)
	require.NoError(t, err)
	e, ok := s.Get(id)
	require.True(t, ok)
	assert.True(t, e.StoreTruncated)
	assert.Equal(t, 4, len(e.Content))
}

func TestOriginallyTruncatedPreserved(t *testing.T) {
	s := NewStore(0, 0)
	id, err := s.Add(Source("log.err"), "logs", strings.Repeat("a", 10), 0, true)
	require.NoError(t, err)
	e, ok := s.Get(id)
	require.True(t, ok)
	assert.True(t, e.OriginallyTruncated)
	assert.False(t, e.StoreTruncated)
}

func TestGetUnknownID(t *testing.T) {
	s := NewStore(0, 0)
	_, ok := s.Get("E99")
	assert.False(t, ok)
}
