package embed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/philippgille/chromem-go"
	"github.com/rotisserie/eris"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

// ChromemBackend selects the chromem-go-backed index store via
// EmbedConfig.Backend (§11.3). Any other value, including the empty string,
// keeps the flat matrix.vec/index.json files WriteMatrix has always written.
const ChromemBackend = "chromem"

// chromemCollection is the single collection a run's vectors live in; one
// data directory holds one persona-mining run (§3), so there is no need to
// key collections by anything beyond that.
const chromemCollection = "messages"

// chromemIDsFile tracks which message IDs are in the collection. chromem-go
// has no "list every document" primitive, so Persist keeps this sidecar in
// lockstep with the collection's contents.
const chromemIDsFile = "ids.json"

// chromemIDManifest is chromemIDsFile's contents.
type chromemIDManifest struct {
	ModelID   string   `json:"model_id"`
	ModelHash string   `json:"model_hash"`
	IDs       []string `json:"ids"`
}

// Persist writes matrix under dataDir using the backend named by
// EmbedConfig.Backend. "chromem" holds the matrix in an in-process
// chromem-go collection, gzip-persisted to embeddings/chromem/; anything
// else falls back to the flat matrix.vec/index.json pair WriteMatrix has
// always written.
func Persist(dataDir, backend string, matrix model.EmbeddingMatrix) error {
	if backend != ChromemBackend {
		return WriteMatrix(dataDir, matrix)
	}
	store, err := openChromemStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Replace(context.Background(), matrix)
}

// Load reads a matrix back using the same backend Persist was called with.
func Load(dataDir, backend string) (model.EmbeddingMatrix, error) {
	if backend != ChromemBackend {
		return ReadMatrix(dataDir)
	}
	store, err := openChromemStore(dataDir)
	if err != nil {
		return model.EmbeddingMatrix{}, err
	}
	defer store.Close()
	return store.All(context.Background())
}

// Nearest returns the k closest rows to query using the configured backend's
// native similarity search where available. No pipeline stage calls it:
// held-out validation messages are assigned to personas by nearest cluster
// centroid in validate.BuildPairs.
func Nearest(dataDir, backend string, query model.Vector, k int) ([]Match, error) {
	if backend != ChromemBackend {
		matrix, err := ReadMatrix(dataDir)
		if err != nil {
			return nil, err
		}
		return bruteForceNearest(matrix, query, k), nil
	}
	store, err := openChromemStore(dataDir)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Nearest(context.Background(), query, k)
}

// Match is one result of a nearest-neighbor query: a message ID and its
// similarity score.
type Match struct {
	ID    string
	Score float64
}

func bruteForceNearest(matrix model.EmbeddingMatrix, query model.Vector, k int) []Match {
	out := make([]Match, len(matrix.Rows))
	for i, row := range matrix.Rows {
		out[i] = Match{ID: matrix.Index.IDs[i], Score: cosine(row, query)}
	}
	sortMatchesDesc(out)
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

func cosine(a, b model.Vector) float64 {
	var dot float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

func sortMatchesDesc(m []Match) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j].Score > m[j-1].Score; j-- {
			m[j], m[j-1] = m[j-1], m[j]
		}
	}
}

// chromemStore holds message embeddings in an in-process chromem-go
// collection instead of the flat matrix.vec file, for callers who configure
// embed.backend: chromem (§11.3 Open Question resolution). Vectors are kept
// in RAM and gzip-exported to disk at the end of every Replace, the deployment shape
// kadirpekel-hector's ChromemProvider uses for its zero-config vector store.
//
// chromem-go has no bulk "list every document" call, so the original
// float64 vector is round-tripped through each Document's Metadata (JSON-
// encoded) rather than chromem's own float32 Embedding field, and the
// sidecar ids.json tracks which IDs exist so All can query for exactly that
// many results.
type chromemStore struct {
	dir        string
	db         *chromem.DB
	collection *chromem.Collection
}

func openChromemStore(dataDir string) (*chromemStore, error) {
	dir := filepath.Join(dataDir, "embeddings", "chromem")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pipelineerrors.NewConfigError(dir, err)
	}
	dbPath := filepath.Join(dir, "vectors.gob.gz")

	db, err := chromem.NewPersistentDB(dbPath, true)
	if err != nil {
		return nil, pipelineerrors.NewConfigError(dbPath, err)
	}

	// Vectors are pre-computed by Embedder; chromem-go's embedding func is
	// only invoked if a caller queries by raw text instead of by vector,
	// which this store never does.
	identity := func(context.Context, string) ([]float32, error) {
		return nil, eris.New("chromem store queried by text instead of by vector")
	}

	col, err := db.GetOrCreateCollection(chromemCollection, nil, identity)
	if err != nil {
		return nil, pipelineerrors.NewConfigError(dbPath, err)
	}

	return &chromemStore{dir: dir, db: db, collection: col}, nil
}

// Replace clears the collection and re-inserts every row of matrix, keeping
// chromem's on-disk state in lockstep with a from-scratch preprocess run
// (preprocess always re-embeds every accepted message, never appends).
func (s *chromemStore) Replace(ctx context.Context, matrix model.EmbeddingMatrix) error {
	if err := s.collection.Delete(ctx, nil, nil); err != nil {
		return pipelineerrors.NewConfigError(chromemCollection, err)
	}

	docs := make([]chromem.Document, len(matrix.Rows))
	for i, row := range matrix.Rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			return eris.Wrap(err, "embed: encode chromem vector")
		}
		docs[i] = chromem.Document{
			ID:        matrix.Index.IDs[i],
			Embedding: toFloat32(row),
			Metadata:  map[string]string{"vector": string(encoded)},
		}
	}
	if len(docs) > 0 {
		if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
			return pipelineerrors.NewConfigError(chromemCollection, err)
		}
	}

	manifest := chromemIDManifest{ModelID: matrix.Index.ModelID, ModelHash: matrix.Index.ModelHash, IDs: matrix.Index.IDs}
	if err := s.writeManifest(manifest); err != nil {
		return err
	}
	return s.export()
}

// All reconstructs the full matrix from the sidecar manifest's ID list plus
// a single similarity query wide enough to return every stored document.
func (s *chromemStore) All(ctx context.Context) (model.EmbeddingMatrix, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return model.EmbeddingMatrix{}, err
	}
	if len(manifest.IDs) == 0 {
		return model.EmbeddingMatrix{Index: model.EmbeddingIndex{ModelID: manifest.ModelID, ModelHash: manifest.ModelHash}}, nil
	}

	zero := make([]float32, model.EmbeddingDim)
	results, err := s.collection.QueryEmbedding(ctx, zero, len(manifest.IDs), nil, nil)
	if err != nil {
		return model.EmbeddingMatrix{}, pipelineerrors.NewConfigError(chromemCollection, err)
	}

	byID := make(map[string]model.Vector, len(results))
	for _, r := range results {
		var vec model.Vector
		if err := json.Unmarshal([]byte(r.Metadata["vector"]), &vec); err != nil {
			return model.EmbeddingMatrix{}, pipelineerrors.NewSchemaError(chromemIDsFile, "$.vector", err)
		}
		byID[r.ID] = vec
	}

	rows := make([]model.Vector, len(manifest.IDs))
	for i, id := range manifest.IDs {
		rows[i] = byID[id]
	}
	return model.EmbeddingMatrix{
		Index: model.EmbeddingIndex{ModelID: manifest.ModelID, ModelHash: manifest.ModelHash, IDs: manifest.IDs},
		Rows:  rows,
	}, nil
}

// Nearest runs chromem-go's own cosine similarity search rather than the
// brute-force fallback ReadMatrix-based callers use, exercising the part of
// chromem-go this store exists to exercise.
func (s *chromemStore) Nearest(ctx context.Context, query model.Vector, k int) ([]Match, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	if k <= 0 || k > len(manifest.IDs) {
		k = len(manifest.IDs)
	}
	if k == 0 {
		return nil, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, toFloat32(query), k, nil, nil)
	if err != nil {
		return nil, pipelineerrors.NewConfigError(chromemCollection, err)
	}
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{ID: r.ID, Score: float64(r.Similarity)}
	}
	return out, nil
}

func (s *chromemStore) writeManifest(m chromemIDManifest) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "embed: marshal chromem manifest")
	}
	return writeAtomic(filepath.Join(s.dir, chromemIDsFile), buf)
}

func (s *chromemStore) readManifest() (chromemIDManifest, error) {
	buf, err := os.ReadFile(filepath.Join(s.dir, chromemIDsFile))
	if os.IsNotExist(err) {
		return chromemIDManifest{}, nil
	}
	if err != nil {
		return chromemIDManifest{}, pipelineerrors.NewConfigError(s.dir, err)
	}
	var m chromemIDManifest
	if err := json.Unmarshal(buf, &m); err != nil {
		return chromemIDManifest{}, pipelineerrors.NewSchemaError(chromemIDsFile, "$", err)
	}
	return m, nil
}

func (s *chromemStore) export() error {
	dbPath := filepath.Join(s.dir, "vectors.gob.gz")
	//nolint:staticcheck // Export is the documented chromem-go persistence call.
	if err := s.db.Export(dbPath, true, ""); err != nil {
		return pipelineerrors.NewConfigError(dbPath, err)
	}
	return nil
}

func (s *chromemStore) Close() error { return nil }

func toFloat32(v model.Vector) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
