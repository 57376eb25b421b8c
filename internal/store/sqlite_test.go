package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/resilience"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_PingAndMigrateAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Migrate(ctx))
}

func TestSQLiteStore_EmbeddingCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vec := model.Vector{0.125, -0.5, 1.0, 0.0}
	err := s.SetEmbedding(ctx, EmbeddingCacheEntry{ModelID: "feature-hash-384", MessageID: "m1", Vector: vec})
	require.NoError(t, err)

	got, ok, err := s.GetEmbedding(ctx, "feature-hash-384", "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec, got)

	_, ok, err = s.GetEmbedding(ctx, "feature-hash-384", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_DeleteEmbeddingsForModel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetEmbedding(ctx, EmbeddingCacheEntry{ModelID: "v1", MessageID: "a", Vector: model.Vector{1}}))
	require.NoError(t, s.SetEmbedding(ctx, EmbeddingCacheEntry{ModelID: "v1", MessageID: "b", Vector: model.Vector{2}}))
	require.NoError(t, s.SetEmbedding(ctx, EmbeddingCacheEntry{ModelID: "v2", MessageID: "a", Vector: model.Vector{3}}))

	n, err := s.DeleteEmbeddingsForModel(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := s.GetEmbedding(ctx, "v1", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetEmbedding(ctx, "v2", "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_CheckpointLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp, err := s.LoadCheckpoint(ctx, model.PhasePreprocessing)
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, s.SaveCheckpoint(ctx, model.PhasePreprocessing, []byte(`{"offset":12}`)))

	cp, err = s.LoadCheckpoint(ctx, model.PhasePreprocessing)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, model.PhasePreprocessing, cp.Phase)
	assert.JSONEq(t, `{"offset":12}`, string(cp.Data))

	require.NoError(t, s.DeleteCheckpoint(ctx, model.PhasePreprocessing))
	cp, err = s.LoadCheckpoint(ctx, model.PhasePreprocessing)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestSQLiteStore_DLQLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	entry := resilience.DLQEntry{
		ItemID:       "msg-1",
		Stage:        "embed",
		Error:        "timeout",
		ErrorType:    "transient",
		RetryCount:   0,
		MaxRetries:   3,
		NextRetryAt:  now.Add(-time.Minute),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	require.NoError(t, s.EnqueueDLQ(ctx, entry))

	count, err := s.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entries, err := s.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "msg-1", entries[0].ItemID)
	assert.Equal(t, "embed", entries[0].Stage)

	id := entries[0].ID
	require.NoError(t, s.IncrementDLQRetry(ctx, id, now.Add(time.Hour), "still failing"))

	entries, err = s.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 0) // next_retry_at is now in the future

	require.NoError(t, s.RemoveDLQ(ctx, id))
	count, err = s.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteStore_DLQFilterByStage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.EnqueueDLQ(ctx, resilience.DLQEntry{
		ItemID: "a", Stage: "embed", Error: "x", ErrorType: "transient",
		MaxRetries: 3, NextRetryAt: now.Add(-time.Minute), CreatedAt: now, LastFailedAt: now,
	}))
	require.NoError(t, s.EnqueueDLQ(ctx, resilience.DLQEntry{
		ItemID: "b", Stage: "validate", Error: "y", ErrorType: "transient",
		MaxRetries: 3, NextRetryAt: now.Add(-time.Minute), CreatedAt: now, LastFailedAt: now,
	}))

	entries, err := s.DequeueDLQ(ctx, resilience.DLQFilter{Stage: "validate"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ItemID)
}
