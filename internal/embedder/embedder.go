package embedder

import "context"

// Backend is an inference runtime hosting a single pretrained embedding model.
// The model itself is opaque: a Backend only knows how to make it resident
// and how to turn a batch of texts into vectors.
type Backend interface {
	// Load makes the model resident and learns its output dimensionality.
	// It is called exactly once per process.
	Load(ctx context.Context) error
	// Encode embeds texts in one batch. Output order matches input order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	// Dimensions is the vector length reported by the model, 0 before Load.
	Dimensions() int
	// ConcurrentSafe reports whether Encode may be called from several
	// goroutines at once.
	ConcurrentSafe() bool
}

// Compile-time checks that the backends implement Backend
var (
	_ Backend = (*OllamaBackend)(nil)
	_ Backend = (*OpenAIBackend)(nil)
	_ Backend = (*HashBackend)(nil)
)
