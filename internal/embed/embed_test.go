package embed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func enrichedOf(id, text string) model.EnrichedMessage {
	return model.EnrichedMessage{
		Filtered: model.FilteredMessage{
			Message: model.RawMessage{
				Platform: model.PlatformLinkedIn,
				LinkedInPost: &model.RawLinkedInPost{
					ID: id, Text: text,
				},
			},
		},
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	e := New("")
	first := e.Embed("quarterly planning notes for the team")
	second := e.Embed("quarterly planning notes for the team")
	assert.Equal(t, first, second)
}

func TestEmbed_DifferentTextDifferentVector(t *testing.T) {
	e := New("")
	a := e.Embed("quarterly planning notes")
	b := e.Embed("a completely unrelated sentence about cooking")
	assert.NotEqual(t, a, b)
}

func TestEmbed_FixedDimension(t *testing.T) {
	e := New("")
	v := e.Embed("short")
	assert.Len(t, v, model.EmbeddingDim)
}

// §8 invariant 3: matrix row i corresponds to index.IDs[i].
func TestEmbedAll_RowOrderMatchesIndexOrder(t *testing.T) {
	e := New("")
	msgs := []model.EnrichedMessage{
		enrichedOf("m1", "first message body"),
		enrichedOf("m2", "second message body"),
		enrichedOf("m3", "third message body"),
	}

	matrix := e.EmbedAll(msgs)
	require.Len(t, matrix.Rows, 3)
	require.Len(t, matrix.Index.IDs, 3)

	for i, msg := range msgs {
		assert.Equal(t, msg.ID(), matrix.Index.IDs[i])
		row, ok := matrix.RowOf(msg.ID())
		require.True(t, ok)
		assert.Equal(t, matrix.Rows[i], row)
	}
}

func TestWriteReadMatrix_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := New("")
	msgs := []model.EnrichedMessage{
		enrichedOf("m1", "first message body about strategy"),
		enrichedOf("m2", "second message body about planning"),
	}
	matrix := e.EmbedAll(msgs)

	require.NoError(t, WriteMatrix(dir, matrix))

	read, err := ReadMatrix(dir)
	require.NoError(t, err)
	assert.Equal(t, matrix.Index, read.Index)
	require.Len(t, read.Rows, len(matrix.Rows))
	for i := range matrix.Rows {
		for j := range matrix.Rows[i] {
			assert.InDelta(t, matrix.Rows[i][j], read.Rows[i][j], 1e-6)
		}
	}
}

// E7 (partial): re-running embedding on the same input yields a
// bit-identical matrix.vec file, up to the encoder's own determinism.
func TestWriteMatrix_RerunIsByteIdentical(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	e := New("")
	msgs := []model.EnrichedMessage{enrichedOf("m1", "idempotent rerun body text")}
	matrix := e.EmbedAll(msgs)

	require.NoError(t, WriteMatrix(dirA, matrix))
	require.NoError(t, WriteMatrix(dirB, matrix))

	a, err := os.ReadFile(filepath.Join(dirA, "embeddings", MatrixFileName))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dirB, "embeddings", MatrixFileName))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestModelHash_StableForSameModelID(t *testing.T) {
	a := New("feature_hash_v1")
	b := New("feature_hash_v1")
	assert.Equal(t, a.ModelHash(), b.ModelHash())
}

func TestModelHash_DiffersAcrossModelIDs(t *testing.T) {
	a := New("feature_hash_v1")
	b := New("feature_hash_v2")
	assert.NotEqual(t, a.ModelHash(), b.ModelHash())
}
