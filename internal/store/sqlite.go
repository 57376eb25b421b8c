package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // Register the pure-Go SQLite driver.

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// Embed pragmas in DSN so every pooled connection gets them.
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single-user pipeline never needs a large pool.
	db.SetMaxOpenConns(10)

	// Verify the connection is usable (sql.Open is lazy).
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}

	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS embedding_cache (
	model_id   TEXT NOT NULL,
	message_id TEXT NOT NULL,
	vector     BLOB NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (model_id, message_id)
);

CREATE TABLE IF NOT EXISTS checkpoints (
	phase      TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	item_id        TEXT NOT NULL,
	stage          TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	failed_phase   TEXT,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dlq_error_type ON dead_letter_queue(error_type);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
CREATE INDEX IF NOT EXISTS idx_dlq_stage ON dead_letter_queue(stage);
`

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector packs a float64 vector into a little-endian byte blob.
func encodeVector(v model.Vector) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(buf []byte) model.Vector {
	v := make(model.Vector, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v
}

// GetEmbedding implements Store.
func (s *SQLiteStore) GetEmbedding(ctx context.Context, modelID, messageID string) (model.Vector, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embedding_cache WHERE model_id = ? AND message_id = ?`,
		modelID, messageID,
	)
	var buf []byte
	if err := row.Scan(&buf); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get embedding")
	}
	return decodeVector(buf), true, nil
}

// SetEmbedding implements Store.
func (s *SQLiteStore) SetEmbedding(ctx context.Context, entry EmbeddingCacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embedding_cache (model_id, message_id, vector, cached_at) VALUES (?, ?, ?, ?)`,
		entry.ModelID, entry.MessageID, encodeVector(entry.Vector), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set embedding")
}

// DeleteEmbeddingsForModel implements Store. It is used when the embedding
// model identity changes, since cached vectors from a prior model are no
// longer comparable (§4.4).
func (s *SQLiteStore) DeleteEmbeddingsForModel(ctx context.Context, modelID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE model_id = ?`, modelID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete embeddings for model")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// SaveCheckpoint implements Store.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, phase model.Phase, data []byte) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints (phase, data, updated_at) VALUES (?, ?, ?)`,
		string(phase), string(data), now,
	)
	return eris.Wrap(err, "sqlite: save checkpoint")
}

// LoadCheckpoint implements Store.
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, phase model.Phase) (*model.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT phase, data, updated_at FROM checkpoints WHERE phase = ?`,
		string(phase),
	)
	var cp model.Checkpoint
	var phaseStr, data string
	err := row.Scan(&phaseStr, &data, &cp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load checkpoint")
	}
	cp.Phase = model.Phase(phaseStr)
	cp.Data = []byte(data)
	return &cp, nil
}

// DeleteCheckpoint implements Store.
func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, phase model.Phase) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE phase = ?`, string(phase))
	return eris.Wrap(err, "sqlite: delete checkpoint")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// EnqueueDLQ implements Store.
func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO dead_letter_queue
		 (id, item_id, stage, error, error_type, failed_phase, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ItemID, entry.Stage, entry.Error, entry.ErrorType,
		entry.FailedPhase, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt.UTC(), entry.CreatedAt.UTC(), entry.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

// DequeueDLQ implements Store.
func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	now := time.Now().UTC()
	query := `SELECT id, item_id, stage, error, error_type, failed_phase, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= ? AND retry_count < max_retries`
	args := []any{now}

	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, filter.Stage)
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue dlq")
	}
	defer rows.Close() //nolint:errcheck

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var failedPhase sql.NullString
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Stage, &e.Error, &e.ErrorType,
			&failedPhase, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		if failedPhase.Valid {
			e.FailedPhase = failedPhase.String
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: dequeue dlq iterate")
}

// IncrementDLQRetry implements Store.
func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE id = ?`,
		nextRetryAt.UTC(), lastErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment dlq retry %s", id)
	}
	return checkRowsAffected(res, "dlq_entry", id)
}

// RemoveDLQ implements Store.
func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

// CountDLQ implements Store.
func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}
