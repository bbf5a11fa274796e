package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// OllamaBackend serves a model hosted by a local Ollama runtime.
type OllamaBackend struct {
	baseURL    string
	httpClient *http.Client
	model      string
	keepAlive  string
	timeout    time.Duration
	dimensions atomic.Int64
}

// OllamaConfig holds configuration options for the Ollama backend.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	KeepAlive string // how long Ollama keeps the model resident; negative = forever
	// Timeout bounds each Encode call. Load is bounded only by its context,
	// since pulling weights into memory can take minutes.
	Timeout time.Duration
}

// ollamaShowRequest represents the request to Ollama's /api/show endpoint.
type ollamaShowRequest struct {
	Model string `json:"model"`
}

// ollamaEmbedRequest represents the request to Ollama's /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

// ollamaEmbedResponse represents the response from Ollama's /api/embed endpoint.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaErrorResponse is the body Ollama sends with non-2xx statuses.
type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// DefaultOllamaConfig returns the default configuration for Ollama.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:   "http://localhost:11434",
		Model:     "mxbai-embed-large",
		KeepAlive: "-1m",
		Timeout:   60 * time.Second,
	}
}

// NewOllamaBackend creates a new Ollama backend with the given configuration.
func NewOllamaBackend(cfg OllamaConfig) *OllamaBackend {
	defaults := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &OllamaBackend{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		keepAlive:  cfg.KeepAlive,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// Load verifies that Ollama hosts the model, then runs a warm-up embedding
// which forces the weights into memory and reveals the dimensionality.
func (c *OllamaBackend) Load(ctx context.Context) error {
	body, err := json.Marshal(ollamaShowRequest{Model: c.model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	status, respBody, err := c.post(ctx, "/api/show", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.statusError(status, respBody)
	}

	embeddings, err := c.embed(ctx, []string{"warmup"})
	if err != nil {
		return err
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return ErrInvalidResponse.WithMessage("Ollama returned no embedding for the warm-up input")
	}
	c.dimensions.Store(int64(len(embeddings[0])))
	return nil
}

// Encode generates embeddings for multiple texts in a single request.
func (c *OllamaBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
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

// embed is the internal method that handles the actual embedding request.
func (c *OllamaBackend) embed(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(ollamaEmbedRequest{
		Model:     c.model,
		Input:     texts,
		KeepAlive: c.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	status, body, err := c.post(ctx, "/api/embed", jsonBody)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(status, body)
	}

	var embedResp ollamaEmbedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, ErrInvalidResponse.WithCause(err)
	}
	return embedResp.Embeddings, nil
}

// post sends a JSON body and returns the status code and response body.
func (c *OllamaBackend) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, ErrBackendUnavailable.
			WithMessage(fmt.Sprintf("cannot connect to Ollama at %s", c.baseURL)).
			WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// statusError maps a non-200 Ollama answer to an EmbeddingError.
func (c *OllamaBackend) statusError(status int, body []byte) error {
	var errResp ollamaErrorResponse
	_ = json.Unmarshal(body, &errResp)
	errMsg := errResp.Error
	if errMsg == "" {
		errMsg = strings.TrimSpace(string(body))
	}

	if status == http.StatusNotFound || strings.Contains(errMsg, "not found") {
		e := ErrModelNotFound.WithMessage(fmt.Sprintf("embedding model '%s' not found in Ollama", c.model))
		e.Suggestion = fmt.Sprintf("Pull the model with 'ollama pull %s' or check the model.path setting", c.model)
		return e
	}

	return &EmbeddingError{
		Code:    "OLLAMA_REQUEST_FAILED",
		Message: fmt.Sprintf("Ollama request failed with status %d: %s", status, errMsg),
	}
}

// ModelName returns the Ollama model name.
func (c *OllamaBackend) ModelName() string {
	return c.model
}

// Dimensions returns the dimensionality measured during Load.
func (c *OllamaBackend) Dimensions() int {
	return int(c.dimensions.Load())
}

// ConcurrentSafe is true; Ollama queues concurrent requests itself.
func (c *OllamaBackend) ConcurrentSafe() bool {
	return true
}
