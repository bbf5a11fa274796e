package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/embedd-dev/embedd/internal/embedder"
	"github.com/embedd-dev/embedd/internal/engine"
	"github.com/embedd-dev/embedd/internal/metrics"
	"github.com/embedd-dev/embedd/internal/service"
)

func getHealth(t *testing.T, h http.Handler) service.HealthStatus {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var health service.HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	return health
}

func decodeEmbeddings(t *testing.T, rr *httptest.ResponseRecorder) [][]float32 {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp service.EmbedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Embeddings
}

// =============================================================================
// Routing
// =============================================================================

func TestRouter_NotFound(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeAPIError(t, rr).Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/embed", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeAPIError(t, rr).Code)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_MetricsEnabled(t *testing.T) {
	svc, _ := newHashService(t, true)
	m := metrics.New("embedd-test", false)
	r := NewRouter(svc, RouterOptions{Metrics: m})

	postEmbed(t, r, `{"text": "foo"}`)
	postEmbed(t, r, `{"text": ""}`)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `embedd_http_requests_total{code="200",method="POST",route="/embed",service="embedd-test"} 1`)
	assert.Contains(t, body, `embedd_http_requests_total{code="400",method="POST",route="/embed",service="embedd-test"} 1`)
}

func TestRouter_RequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{Logger: zap.New(core)})

	postEmbed(t, r, `{"text": "foo"}`)
	getHealth(t, r)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)

	embedEntry := entries[0]
	assert.Equal(t, zapcore.InfoLevel, embedEntry.Level)
	fields := embedEntry.ContextMap()
	assert.Equal(t, "/embed", fields["route"])
	assert.Equal(t, int64(200), fields["status"])
	assert.NotEmpty(t, fields["request_id"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level, "health probes log at debug")
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	r := NewRouter(&panicService{}, RouterOptions{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type panicService struct{ stubService }

func (panicService) Health() service.HealthStatus { panic("boom") }

// =============================================================================
// Readiness lifecycle
// =============================================================================

func TestRouter_ReadinessGating(t *testing.T) {
	svc, eng := newHashService(t, false)
	r := NewRouter(svc, RouterOptions{})

	health := getHealth(t, r)
	assert.Equal(t, "loading_model", health.Status)
	assert.False(t, health.ModelLoaded)
	assert.Equal(t, "unknown", health.Device)

	rr := postEmbed(t, r, `{"text": "foo"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "MODEL_NOT_READY", decodeAPIError(t, rr).Code)

	require.NoError(t, eng.Load(context.Background()))

	health = getHealth(t, r)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "cpu", health.Device)
	assert.Equal(t, 1024, health.Dimensions)

	assert.Len(t, decodeEmbeddings(t, postEmbed(t, r, `{"text": "foo"}`)), 1)
}

func TestRouter_LoadFailure(t *testing.T) {
	backend := embedder.NewHashBackend("broken", 8)
	eng := engine.New(backend, engine.Config{Device: "cuda"}, nil, nil)
	require.Error(t, eng.Load(context.Background()))
	r := NewRouter(service.New(eng, service.Options{}), RouterOptions{})

	health := getHealth(t, r)
	assert.Equal(t, "loading_model", health.Status)
	assert.False(t, health.ModelLoaded)
	assert.Contains(t, health.Error, "cuda")

	rr := postEmbed(t, r, `{"text": "foo"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Empty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "MODEL_LOAD_FAILED", decodeAPIError(t, rr).Code)
}

// =============================================================================
// End-to-end scenarios
// =============================================================================

func TestScenario_SingleSentence(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	embeddings := decodeEmbeddings(t, postEmbed(t, r, `{"text": "A man is eating a piece of bread"}`))
	require.Len(t, embeddings, 1)
	assert.Len(t, embeddings[0], 1024)
}

func TestScenario_TwoSentences(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	embeddings := decodeEmbeddings(t, postEmbed(t, r,
		`{"text": ["A man is eating a piece of bread", "The girl is carrying a baby"]}`))
	require.Len(t, embeddings, 2)
	assert.Len(t, embeddings[0], 1024)
	assert.Len(t, embeddings[1], 1024)
	assert.NotEqual(t, embeddings[0], embeddings[1])
}

func TestScenario_Query(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	query := decodeEmbeddings(t, postEmbed(t, r, `{"text": "What is he eating?", "is_query": true}`))
	require.Len(t, query, 1)
	assert.Len(t, query[0], 1024)

	// The query vector is the vector of the prefixed document text.
	prefixed := decodeEmbeddings(t, postEmbed(t, r,
		`{"text": "Represent this sentence for searching relevant passages: What is he eating?"}`))
	assert.InDeltaSlice(t, prefixed[0], query[0], 1e-6)
}

func TestScenario_SingleStringEquivalence(t *testing.T) {
	svc, _ := newHashService(t, true)
	r := NewRouter(svc, RouterOptions{})

	single := decodeEmbeddings(t, postEmbed(t, r, `{"text": "foo"}`))
	list := decodeEmbeddings(t, postEmbed(t, r, `{"text": ["foo"]}`))
	assert.InDeltaSlice(t, list[0], single[0], 1e-6)
}

// =============================================================================
// Timeouts
// =============================================================================

func TestRouter_RequestTimeoutReachesService(t *testing.T) {
	slow := &deadlineService{}
	r := NewRouter(slow, RouterOptions{RequestTimeout: 20 * time.Millisecond})

	rr := postEmbed(t, r, `{"text": "foo"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, "REQUEST_TIMEOUT", decodeAPIError(t, rr).Code)
	assert.True(t, errors.Is(slow.err, context.DeadlineExceeded))
}

func TestRouter_RequestTimeoutWritesHeaderOnce(t *testing.T) {
	r := NewRouter(&deadlineService{}, RouterOptions{RequestTimeout: 20 * time.Millisecond})

	req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"text": "foo"}`))
	w := &headerCountingWriter{ResponseRecorder: httptest.NewRecorder()}
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, 1, w.headerWrites, "the timeout middleware must not write a second status")
}

// headerCountingWriter counts WriteHeader calls reaching the server's writer.
type headerCountingWriter struct {
	*httptest.ResponseRecorder
	headerWrites int
}

func (w *headerCountingWriter) WriteHeader(code int) {
	w.headerWrites++
	w.ResponseRecorder.WriteHeader(code)
}

// deadlineService blocks Embed until the request context ends.
type deadlineService struct {
	stubService
	err error
}

func (d *deadlineService) Embed(ctx context.Context, _ service.EmbedRequest) (*service.EmbedResponse, error) {
	<-ctx.Done()
	d.err = ctx.Err()
	return nil, d.err
}
