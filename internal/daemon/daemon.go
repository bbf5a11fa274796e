// Package daemon runs the embedd HTTP server: it binds the listener,
// starts serving, loads the model in the background and shuts down
// gracefully on signals.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/embedd-dev/embedd/internal/api"
	"github.com/embedd-dev/embedd/internal/config"
	"github.com/embedd-dev/embedd/internal/embedder"
	"github.com/embedd-dev/embedd/internal/engine"
	"github.com/embedd-dev/embedd/internal/metrics"
	"github.com/embedd-dev/embedd/internal/service"
)

// Daemon orchestrates the embedd server, coordinating the model engine,
// the request service and the HTTP listener.
type Daemon struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	engine  *engine.Engine
	service *service.Service
	router  *api.Router

	server    *http.Server
	listener  net.Listener
	serverErr chan error
	stopLoad  context.CancelFunc
	pidFile   string

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a Daemon whose backend is built from cfg.
func New(cfg *config.Config, logger *zap.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	backend, err := embedder.NewFromConfig(&embedder.ProviderConfig{
		Backend: cfg.Model.Backend,
		Model:   cfg.Model.Path,
		Timeout: cfg.Server.RequestTimeout(),
		Ollama: embedder.OllamaProviderSettings{
			URL:       cfg.Ollama.URL,
			KeepAlive: cfg.Ollama.KeepAlive,
		},
		OpenAI: embedder.OpenAIProviderSettings{
			URL:    cfg.OpenAI.URL,
			APIKey: cfg.OpenAI.APIKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	return NewWithBackend(cfg, backend, logger)
}

// NewWithBackend creates a Daemon around an existing backend.
func NewWithBackend(cfg *config.Config, backend embedder.Backend, logger *zap.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		m        *metrics.Metrics
		recorder engine.Recorder
	)
	if cfg.Metrics.Enabled {
		m = metrics.New("embedd", true)
		recorder = m
	}

	engineCfg := engine.Config{
		Identifier:     cfg.Model.Path,
		Device:         cfg.Model.Device,
		TruncateDim:    cfg.Model.TruncateDim,
		BatchSize:      cfg.Model.BatchSize,
		MaxConcurrency: cfg.Model.MaxConcurrency,
		Serialize:      cfg.Model.Serialize,
		LoadTimeout:    cfg.Model.LoadTimeout(),
	}
	fields := []zap.Field{
		zap.String("model", cfg.Model.Path),
		zap.String("backend", embedder.BackendType(cfg.Model.Backend).DisplayName()),
	}
	if info := embedder.LookupModel(cfg.Model.Path); info != nil {
		engineCfg.ExpectedDimensions = info.Dimensions
		fields = append(fields,
			zap.Int("dimensions", info.Dimensions),
			zap.Int("context_tokens", info.ContextSize),
		)
	} else {
		logger.Warn("model is not in the registry; dimensions and context size are unknown until load",
			zap.String("model", cfg.Model.Path))
	}
	logger.Info("model configured", fields...)

	eng := engine.New(backend, engineCfg, logger.Named("engine"), recorder)
	svc := service.New(eng, service.Options{
		QueryPrompt: cfg.Model.QueryPrompt,
		Logger:      logger.Named("service"),
	})
	router := api.NewRouter(svc, api.RouterOptions{
		Logger:         logger.Named("http"),
		Metrics:        m,
		RequestTimeout: cfg.Server.RequestTimeout(),
	})

	return &Daemon{
		config:  cfg,
		logger:  logger,
		metrics: m,
		engine:  eng,
		service: svc,
		router:  router,
		pidFile: cfg.Server.PIDFile,
	}, nil
}

// Engine returns the model engine.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// Handler returns the HTTP handler serving the API.
func (d *Daemon) Handler() http.Handler {
	return d.router
}

// Addr returns the bound listener address, or "" before Start.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Start binds the listener, begins serving and then starts loading the
// model in the background. It returns once the server accepts connections.
func (d *Daemon) Start(ctx context.Context) error {
	if d.pidFile != "" {
		if err := AcquirePIDFile(d.pidFile, os.Getpid()); err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", d.config.Server.Address())
	if err != nil {
		d.releasePIDFile()
		return fmt.Errorf("failed to listen on %s: %w", d.config.Server.Address(), err)
	}
	d.listener = listener

	d.server = &http.Server{
		Handler:           d.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	d.serverErr = make(chan error, 1)
	go func() {
		d.logger.Info("starting API server", zap.String("addr", listener.Addr().String()))
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.serverErr <- err
		}
		close(d.serverErr)
	}()

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.stopLoad = cancel
	d.engine.Start(loadCtx)
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled, a shutdown
// signal arrives or the server fails.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, ShutdownSignals()...)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info("context cancelled, shutting down")
	case sig := <-sigCh:
		d.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-d.serverErr:
		if err != nil {
			d.logger.Error("server error", zap.Error(err))
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.Server.ShutdownTimeout())
	defer cancel()
	if err := d.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops accepting connections, waits for in-flight requests
// until ctx expires and abandons a model load still in progress.
// Calling it more than once returns the first result.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() {
		if d.stopLoad != nil {
			d.stopLoad()
		}
		if d.server != nil {
			if err := d.server.Shutdown(ctx); err != nil {
				d.shutdownErr = fmt.Errorf("failed to shut down server: %w", err)
			}
		}
		d.releasePIDFile()
		d.logger.Info("daemon stopped")
		_ = d.logger.Sync()
	})
	return d.shutdownErr
}

func (d *Daemon) releasePIDFile() {
	if d.pidFile == "" {
		return
	}
	if err := ReleasePIDFile(d.pidFile, os.Getpid()); err != nil {
		d.logger.Warn("failed to remove PID file", zap.String("path", d.pidFile), zap.Error(err))
	}
}
