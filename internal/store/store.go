package store

import (
	"context"
	"time"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/resilience"
)

// EmbeddingCacheEntry is one cached embedding row, keyed by the embedding
// model identity and the source message ID, so a change of embedding model
// invalidates cached vectors without touching the message corpus (§4.4).
type EmbeddingCacheEntry struct {
	ModelID   string
	MessageID string
	Vector    model.Vector
}

// Store defines the local, single-process persistence interface used to
// speed up and make resumable the otherwise stateless, file-based pipeline
// (§6, §7). It backs the embedding cache, phase checkpoints, and the dead
// letter queue; it does not hold the canonical artefacts themselves, which
// live as files in the data directory.
type Store interface {
	// Embedding cache
	GetEmbedding(ctx context.Context, modelID, messageID string) (model.Vector, bool, error)
	SetEmbedding(ctx context.Context, entry EmbeddingCacheEntry) error
	DeleteEmbeddingsForModel(ctx context.Context, modelID string) (int, error)

	// Checkpoint/resume
	SaveCheckpoint(ctx context.Context, phase model.Phase, data []byte) error
	LoadCheckpoint(ctx context.Context, phase model.Phase) (*model.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, phase model.Phase) error

	// Dead letter queue
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
