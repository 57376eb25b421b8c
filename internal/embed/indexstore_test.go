package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func TestPersistLoad_DefaultBackendRoundTrips(t *testing.T) {
	dir := t.TempDir()
	e := New("")
	msgs := []model.EnrichedMessage{
		enrichedOf("m1", "quarterly planning notes for the leadership team"),
		enrichedOf("m2", "a completely unrelated sentence about weekend cooking"),
	}
	matrix := e.EmbedAll(msgs)

	require.NoError(t, Persist(dir, "", matrix))
	read, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, matrix.Index, read.Index)
	require.Len(t, read.Rows, len(matrix.Rows))
}

func TestNearest_DefaultBackendRanksExactMatchFirst(t *testing.T) {
	dir := t.TempDir()
	e := New("")
	msgs := []model.EnrichedMessage{
		enrichedOf("m1", "quarterly planning notes for the leadership team"),
		enrichedOf("m2", "a completely unrelated sentence about weekend cooking"),
	}
	matrix := e.EmbedAll(msgs)
	require.NoError(t, Persist(dir, "", matrix))

	query := e.Embed("quarterly planning notes for the leadership team")
	matches, err := Nearest(dir, "", query, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m1", matches[0].ID)
}

func TestBruteForceNearest_LimitsToK(t *testing.T) {
	matrix := model.EmbeddingMatrix{
		Index: model.EmbeddingIndex{IDs: []string{"a", "b", "c"}},
		Rows: []model.Vector{
			{1, 0}, {0, 1}, {1, 1},
		},
	}
	matches := bruteForceNearest(matrix, model.Vector{1, 0}, 2)
	assert.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
}
