// Package client is a typed HTTP client for the embedd API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/embedd-dev/embedd/internal/api"
	"github.com/embedd-dev/embedd/internal/service"
)

// DefaultBaseURL is where a locally started embedd listens.
const DefaultBaseURL = "http://localhost:8000"

// ErrLoadFailed is returned by WaitReady when the server reports that the
// model failed to load. Waiting longer will not help.
var ErrLoadFailed = errors.New("model failed to load")

// StatusError is returned for any non-2xx response
type StatusError struct {
	StatusCode int
	APIError   api.APIError
	// RetryAfter is the server's Retry-After hint, 0 if absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.APIError.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.APIError.Error())
}

// IsNotReady reports whether err means the model is still loading.
func IsNotReady(err error) bool {
	var se *StatusError
	return errors.As(err, &se) &&
		se.StatusCode == http.StatusServiceUnavailable &&
		se.APIError.Code == api.ErrModelNotReady.Code
}

// Config configures a Client
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration
	Retry   RetryConfig
}

// Client provides methods to communicate with an embedd server
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
}

// New creates a new client
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry: cfg.Retry,
	}
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health fetches the server's readiness status
func (c *Client) Health(ctx context.Context) (*service.HealthStatus, error) {
	var health service.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Embed sends one embed request without retrying
func (c *Client) Embed(ctx context.Context, req service.EmbedRequest) (*service.EmbedResponse, error) {
	var resp service.EmbedResponse
	if err := c.do(ctx, http.MethodPost, "/embed", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EmbedWithRetry sends an embed request, retrying while the model loads.
func (c *Client) EmbedWithRetry(ctx context.Context, req service.EmbedRequest) (*service.EmbedResponse, error) {
	var resp *service.EmbedResponse
	err := WithRetry(ctx, func() error {
		var err error
		resp, err = c.Embed(ctx, req)
		return err
	}, c.retry)
	return resp, err
}

// EmbedTexts embeds texts as documents, or as queries when isQuery is set.
func (c *Client) EmbedTexts(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	resp, err := c.EmbedWithRetry(ctx, service.EmbedRequest{Text: service.Texts(texts...), IsQuery: isQuery})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// WaitReady polls /health every interval until the model is loaded, the
// server reports a load failure, or ctx ends. Connection errors are
// treated as "not up yet".
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) (*service.HealthStatus, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		health, err := c.Health(ctx)
		lastErr = err
		switch {
		case err == nil && health.ModelLoaded:
			return health, nil
		case err == nil && health.Error != "":
			return health, fmt.Errorf("%w: %s", ErrLoadFailed, health.Error)
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return health, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &se.APIError); err != nil || se.APIError.Code == "" {
		se.APIError = api.APIError{
			Code:   http.StatusText(resp.StatusCode),
			Detail: strings.TrimSpace(string(data)),
		}
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return se
}
