package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync/atomic"
)

// DefaultHashDimensions matches the default model's output size.
const DefaultHashDimensions = 1024

// HashBackend is an in-process backend producing deterministic unit vectors
// from a SHA-256 stream of the input text. Identical text always yields the
// identical vector, distinct text yields a different one. It needs no model
// runtime, which makes it suitable for offline use and tests.
type HashBackend struct {
	model      string
	dimensions int
	loaded     atomic.Bool
}

// NewHashBackend creates a HashBackend. dimensions <= 0 uses DefaultHashDimensions.
func NewHashBackend(model string, dimensions int) *HashBackend {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashBackend{model: model, dimensions: dimensions}
}

// Load marks the backend as loaded.
func (h *HashBackend) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.loaded.Store(true)
	return nil
}

// Encode generates one deterministic embedding per text.
func (h *HashBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if !h.loaded.Load() {
		return nil, ErrInferenceFailed.WithMessage("hash backend used before Load")
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = h.generate(text)
	}
	return embeddings, nil
}

// ModelName returns the configured model identifier.
func (h *HashBackend) ModelName() string {
	return h.model
}

// Dimensions returns the embedding dimension count once loaded.
func (h *HashBackend) Dimensions() int {
	if !h.loaded.Load() {
		return 0
	}
	return h.dimensions
}

// ConcurrentSafe is true; Encode shares no mutable state.
func (h *HashBackend) ConcurrentSafe() bool {
	return true
}

// generate expands SHA-256(model, counter, text) into dimensions values in
// [-1, 1) and normalizes the result to unit length.
func (h *HashBackend) generate(text string) []float32 {
	embedding := make([]float32, h.dimensions)

	var counter [4]byte
	var block [sha256.Size]byte
	for i := 0; i < h.dimensions; i++ {
		if i%8 == 0 {
			binary.BigEndian.PutUint32(counter[:], uint32(i/8))
			hasher := sha256.New()
			hasher.Write([]byte(h.model))
			hasher.Write(counter[:])
			hasher.Write([]byte(text))
			copy(block[:], hasher.Sum(nil))
		}
		word := binary.BigEndian.Uint32(block[(i%8)*4:])
		embedding[i] = float32(float64(word)/float64(math.MaxUint32)*2 - 1)
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}
