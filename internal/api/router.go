package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/embedd-dev/embedd/internal/metrics"
)

// DefaultRequestTimeout bounds each request when no timeout is configured.
const DefaultRequestTimeout = 60 * time.Second

// RouterOptions configures the router
type RouterOptions struct {
	Logger *zap.Logger
	// Metrics enables GET /metrics and request instrumentation when set.
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Router wraps a chi router with handler configuration
type Router struct {
	chi chi.Router
}

// NewRouter creates a new Router serving svc
func NewRouter(svc Service, opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	handler := NewHandler(svc, logger, opts.MaxBodyBytes)

	var observer RequestObserver
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger, observer))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Register routes
	r.Get("/health", handler.Health)
	r.Post("/embed", handler.Embed)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	return &Router{chi: r}
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.chi.ServeHTTP(w, req)
}
