// Package embed implements the Embedder stage: a deterministic,
// dependency-free sentence encoder plus the file-level matrix/index pair
// the rest of the pipeline reads back (§4.4, §6).
package embed

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

// MatrixFileName and IndexFileName are the well-known artefact names inside
// the data directory's embeddings/ subdirectory (§6).
const (
	MatrixFileName = "matrix.vec"
	IndexFileName  = "index.json"
	FeatureHashID  = "feature_hash_v1"
)

// Embedder maps EnrichedMessage bodies to fixed-width vectors using a
// deterministic feature-hashing scheme: a dependency-free stand-in for a
// real sentence encoder that satisfies the same determinism contract
// (same model + input always yields the same vector).
type Embedder struct {
	modelID string
}

// New returns an Embedder identified by modelID. Changing modelID forces a
// full re-embedding of the corpus (§4.4).
func New(modelID string) *Embedder {
	if modelID == "" {
		modelID = FeatureHashID
	}
	return &Embedder{modelID: modelID}
}

// ModelID returns the embedder's identifier.
func (e *Embedder) ModelID() string { return e.modelID }

// ModelHash returns a stable, short hash of the model identifier, recorded
// in the index so readers can detect a stale matrix without re-reading it.
func (e *Embedder) ModelHash() string {
	sum := sha256.Sum256([]byte(e.modelID))
	return fmt.Sprintf("%x", sum[:8])
}

// Embed maps a single text body to a model.EmbeddingDim vector. Deterministic:
// the same text and model ID always hash to the same vector, and the result
// is L2-normalized so cosine and dot-product similarity coincide.
func (e *Embedder) Embed(text string) model.Vector {
	vec := make([]float64, model.EmbeddingDim)
	for _, tok := range tokenize(text) {
		idx, sign := hashToken(e.modelID, tok)
		vec[idx] += sign
	}
	normalize(vec)
	return vec
}

// EmbedAll maps a stably-ordered slice of EnrichedMessages to a matrix whose
// row order matches the input order exactly (§8 item 3).
func (e *Embedder) EmbedAll(messages []model.EnrichedMessage) model.EmbeddingMatrix {
	rows := make([]model.Vector, len(messages))
	ids := make([]string, len(messages))
	for i, msg := range messages {
		rows[i] = e.Embed(msg.Body())
		ids[i] = msg.ID()
	}
	return model.EmbeddingMatrix{
		Index: model.EmbeddingIndex{ModelID: e.modelID, ModelHash: e.ModelHash(), IDs: ids},
		Rows:  rows,
	}
}

// tokenize lower-cases and splits on non-letter/non-digit runes. Determinism
// only requires stability, not linguistic sophistication. Text is first put
// into NFC form so visually-identical messages that arrived with different
// Unicode decompositions (e.g. a precomposed vs. combining accent) hash to
// the same tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hashToken deterministically maps a token to a (dimension, sign) pair using
// the classic feature-hashing trick: one hash selects the bucket, a second
// selects the sign, which keeps the expected dot product between unrelated
// tokens near zero.
func hashToken(modelID, token string) (int, float64) {
	h := sha256.Sum256([]byte(modelID + "\x00" + token))
	bucket := binary.LittleEndian.Uint32(h[0:4]) % uint32(model.EmbeddingDim)
	sign := 1.0
	if h[4]&1 == 1 {
		sign = -1.0
	}
	return int(bucket), sign
}

func normalize(vec []float64) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return
	}
	norm := math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] /= norm
	}
}

// WriteMatrix persists matrix + index to dataDir/embeddings/, atomically,
// encoding rows as canonical little-endian float32 (§6) — distinct from the
// float64 precision used internally and by the SQLite embedding cache.
func WriteMatrix(dataDir string, matrix model.EmbeddingMatrix) error {
	dir := filepath.Join(dataDir, "embeddings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipelineerrors.NewConfigError(dir, err)
	}

	buf := make([]byte, 0, len(matrix.Rows)*model.EmbeddingDim*4)
	for _, row := range matrix.Rows {
		for _, f := range row {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(f)))
			buf = append(buf, b[:]...)
		}
	}
	if err := writeAtomic(filepath.Join(dir, MatrixFileName), buf); err != nil {
		return err
	}

	indexJSON, err := json.MarshalIndent(matrix.Index, "", "  ")
	if err != nil {
		return eris.Wrap(err, "embed: marshal index")
	}
	return writeAtomic(filepath.Join(dir, IndexFileName), indexJSON)
}

// ReadMatrix loads matrix + index back from dataDir/embeddings/.
func ReadMatrix(dataDir string) (model.EmbeddingMatrix, error) {
	dir := filepath.Join(dataDir, "embeddings")

	indexData, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		return model.EmbeddingMatrix{}, pipelineerrors.NewConfigError(dir, err)
	}
	var index model.EmbeddingIndex
	if err := json.Unmarshal(indexData, &index); err != nil {
		return model.EmbeddingMatrix{}, pipelineerrors.NewSchemaError(IndexFileName, "$", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, MatrixFileName))
	if err != nil {
		return model.EmbeddingMatrix{}, pipelineerrors.NewConfigError(dir, err)
	}
	if len(raw)%4 != 0 {
		return model.EmbeddingMatrix{}, pipelineerrors.NewSchemaError(MatrixFileName, "$", eris.New("truncated float32 stream"))
	}
	floatCount := len(raw) / 4
	if len(index.IDs) == 0 || floatCount%len(index.IDs) != 0 {
		return model.EmbeddingMatrix{}, pipelineerrors.NewSchemaError(MatrixFileName, "$", eris.New("matrix row count does not match index"))
	}
	dim := floatCount / len(index.IDs)

	rows := make([]model.Vector, len(index.IDs))
	for i := range rows {
		row := make(model.Vector, dim)
		for j := 0; j < dim; j++ {
			offset := (i*dim + j) * 4
			bits := binary.LittleEndian.Uint32(raw[offset : offset+4])
			row[j] = float64(math.Float32frombits(bits))
		}
		rows[i] = row
	}

	return model.EmbeddingMatrix{Index: index, Rows: rows}, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pipelineerrors.NewConfigError(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pipelineerrors.NewConfigError(path, err)
	}
	return nil
}
