package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for an OpenAI-compatible inference server
// such as text-embeddings-inference, vLLM or infinity.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds each Encode call. Load is bounded only by its context.
	Timeout time.Duration
}

// DefaultOpenAIConfig returns the default configuration for a local
// OpenAI-compatible server.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL: "http://localhost:8080/v1",
		Model:   DefaultModel,
		Timeout: 60 * time.Second,
	}
}

// OpenAIBackend serves a model hosted behind an OpenAI-compatible
// /embeddings endpoint.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	dimensions atomic.Int64
}

// NewOpenAIBackend creates a new OpenAI-compatible backend.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	defaults := DefaultOpenAIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{}

	return &OpenAIBackend{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Load runs a warm-up embedding to confirm the server hosts the model and
// to learn its dimensionality.
func (c *OpenAIBackend) Load(ctx context.Context) error {
	embeddings, err := c.embed(ctx, []string{"warmup"})
	if err != nil {
		return err
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return ErrInvalidResponse.WithMessage("server returned no embedding for the warm-up input")
	}
	c.dimensions.Store(int64(len(embeddings[0])))
	return nil
}

// Encode generates embeddings for multiple texts in a single request.
func (c *OpenAIBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.embed(ctx, texts)
}

func (c *OpenAIBackend) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.mapError(err)
	}

	// The server may answer out of order; Index is authoritative.
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	result := make([][]float32, len(data))
	for i, item := range data {
		if item.Index != i {
			return nil, ErrInvalidResponse.WithMessage(fmt.Sprintf("embedding indices are not 0..%d: position %d has index %d", len(data)-1, i, item.Index))
		}
		result[i] = item.Embedding
	}
	return result, nil
}

// mapError converts go-openai errors into EmbeddingErrors.
func (c *OpenAIBackend) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusNotFound {
			e := ErrModelNotFound.WithMessage(fmt.Sprintf("embedding model '%s' not served", c.model))
			return e.WithCause(err)
		}
		return &EmbeddingError{
			Code:    "REQUEST_FAILED",
			Message: fmt.Sprintf("embedding request failed with status %d", apiErr.HTTPStatusCode),
			Cause:   err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusNotFound {
			e := ErrModelNotFound.WithMessage(fmt.Sprintf("embedding model '%s' not served", c.model))
			return e.WithCause(err)
		}
		return &EmbeddingError{
			Code:    "REQUEST_FAILED",
			Message: fmt.Sprintf("embedding request failed with status %d", reqErr.HTTPStatusCode),
			Cause:   err,
		}
	}

	return ErrBackendUnavailable.WithCause(err)
}

// ModelName returns the configured model name.
func (c *OpenAIBackend) ModelName() string {
	return c.model
}

// Dimensions returns the dimensionality measured during Load.
func (c *OpenAIBackend) Dimensions() int {
	return int(c.dimensions.Load())
}

// ConcurrentSafe is true; the HTTP client is safe for concurrent use.
func (c *OpenAIBackend) ConcurrentSafe() bool {
	return true
}
