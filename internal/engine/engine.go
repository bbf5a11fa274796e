package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/embedd-dev/embedd/internal/embedder"
)

// DeviceCPU is the only supported execution target.
const DeviceCPU = "cpu"

// Default tuning values.
const (
	DefaultBatchSize      = 32
	DefaultMaxConcurrency = 4
)

var (
	// ErrNotReady is returned by Encode while the model is loading.
	ErrNotReady = errors.New("embedding model is not loaded")
	// ErrLoadFailed is returned by Encode after the model failed to load.
	ErrLoadFailed = errors.New("embedding model failed to load")
	// ErrEmptyInput is returned by Encode for an empty batch.
	ErrEmptyInput = errors.New("no texts to encode")
)

// Config controls how the engine loads and drives its backend.
type Config struct {
	// Identifier is the configured model name or local path, for reporting.
	Identifier string
	Device     string
	// ExpectedDimensions, when > 0, must match what the backend reports.
	ExpectedDimensions int
	// TruncateDim, when > 0, keeps only the first TruncateDim components.
	TruncateDim    int
	BatchSize      int
	MaxConcurrency int
	// Serialize forces one Encode at a time regardless of the backend.
	Serialize   bool
	LoadTimeout time.Duration
}

// Recorder receives engine measurements. *metrics.Metrics implements it.
type Recorder interface {
	SetModelState(state string)
	ObserveLoad(d time.Duration)
	ObserveEncode(texts int, d time.Duration, err error)
}

// Engine is the process-wide handle on the loaded model. It is created in
// StateLoading, moves to StateReady or StateFailed exactly once, and is
// read-only afterwards. All methods are safe for concurrent use.
type Engine struct {
	backend  embedder.Backend
	cfg      Config
	logger   *zap.Logger
	recorder Recorder

	state       atomic.Int32
	dimensions  atomic.Int64
	backendDims atomic.Int64
	loadErr     atomic.Pointer[error]

	sem       *semaphore.Weighted
	startOnce sync.Once
	done      chan struct{}
}

// New creates an Engine in StateLoading. logger and recorder may be nil.
func New(backend embedder.Backend, cfg Config, logger *zap.Logger, recorder Recorder) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Device == "" {
		cfg.Device = DeviceCPU
	}
	if cfg.Identifier == "" {
		cfg.Identifier = backend.ModelName()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}

	slots := int64(cfg.MaxConcurrency)
	if cfg.Serialize || !backend.ConcurrentSafe() {
		slots = 1
	}

	e := &Engine{
		backend:  backend,
		cfg:      cfg,
		logger:   logger.With(zap.String("model", cfg.Identifier)),
		recorder: recorder,
		sem:      semaphore.NewWeighted(slots),
		done:     make(chan struct{}),
	}
	e.setState(StateLoading)
	return e
}

// Start loads the model in a background goroutine and returns immediately.
// Only the first call has any effect.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		go e.load(ctx)
	})
}

// Load loads the model synchronously and returns the outcome. If loading
// was already started, it waits for that attempt instead.
func (e *Engine) Load(ctx context.Context) error {
	e.startOnce.Do(func() {
		e.load(ctx)
	})
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the engine leaves StateLoading.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) load(ctx context.Context) {
	defer close(e.done)

	start := time.Now()
	e.logger.Info("loading embedding model",
		zap.String("backend_model", e.backend.ModelName()),
		zap.String("device", e.cfg.Device),
	)

	backendDims, dims, err := e.loadBackend(ctx)
	if err != nil {
		e.loadErr.Store(&err)
		e.setState(StateFailed)
		e.logger.Error("failed to load embedding model; embed requests will be rejected until restart",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return
	}

	e.backendDims.Store(int64(backendDims))
	e.dimensions.Store(int64(dims))
	e.setState(StateReady)
	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.ObserveLoad(elapsed)
	}
	e.logger.Info("embedding model loaded",
		zap.Int("dimensions", dims),
		zap.Duration("elapsed", elapsed),
	)
}

// loadBackend loads the backend and returns the backend's dimensionality
// and the effective output dimensionality after truncation.
func (e *Engine) loadBackend(ctx context.Context) (int, int, error) {
	if !strings.EqualFold(e.cfg.Device, DeviceCPU) {
		return 0, 0, embedder.ErrUnsupportedDevice.WithMessage(fmt.Sprintf("unsupported inference device '%s'", e.cfg.Device))
	}

	if e.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.LoadTimeout)
		defer cancel()
	}

	if err := e.backend.Load(ctx); err != nil {
		return 0, 0, err
	}

	dims := e.backend.Dimensions()
	if dims <= 0 {
		return 0, 0, embedder.ErrInvalidResponse.WithMessage("backend reported no embedding dimensionality")
	}
	if e.cfg.ExpectedDimensions > 0 && dims != e.cfg.ExpectedDimensions {
		return 0, 0, embedder.ErrDimensionMismatch.WithMessage(fmt.Sprintf(
			"model produces %d-dimensional vectors, expected %d", dims, e.cfg.ExpectedDimensions))
	}
	if e.cfg.TruncateDim > dims {
		return 0, 0, embedder.ErrDimensionMismatch.WithMessage(fmt.Sprintf(
			"truncate_dim %d exceeds model dimensionality %d", e.cfg.TruncateDim, dims))
	}
	if e.cfg.TruncateDim > 0 {
		return dims, e.cfg.TruncateDim, nil
	}
	return dims, dims, nil
}

// Encode embeds texts and returns one vector per text, in input order, each
// of length Dimensions(). Texts are sent to the backend in sub-batches of
// Config.BatchSize; the result does not depend on the split.
func (e *Engine) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	switch e.State() {
	case StateLoading:
		return nil, ErrNotReady
	case StateFailed:
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, e.Err())
	}
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, embedder.ErrInferenceFailed.WithCause(err)
	}
	defer e.sem.Release(1)

	start := time.Now()
	out, err := e.encode(ctx, texts)
	if e.recorder != nil {
		e.recorder.ObserveEncode(len(texts), time.Since(start), err)
	}
	if err != nil {
		e.logger.Warn("embedding inference failed", zap.Int("texts", len(texts)), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (e *Engine) encode(ctx context.Context, texts []string) ([][]float32, error) {
	backendDims := int(e.backendDims.Load())
	outDims := e.Dimensions()
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))

		vecs, err := e.backend.Encode(ctx, texts[start:end])
		if err != nil {
			return nil, embedder.ErrInferenceFailed.WithCause(err)
		}
		if len(vecs) != end-start {
			return nil, embedder.ErrInferenceFailed.WithCause(embedder.ErrInvalidResponse.WithMessage(
				fmt.Sprintf("backend returned %d embeddings for %d texts", len(vecs), end-start)))
		}
		for i, vec := range vecs {
			if len(vec) != backendDims {
				return nil, embedder.ErrInferenceFailed.WithCause(embedder.ErrDimensionMismatch.WithMessage(
					fmt.Sprintf("embedding %d has %d dimensions, expected %d", start+i, len(vec), backendDims)))
			}
			out = append(out, vec[:outDims:outDims])
		}
	}
	return out, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Ready reports whether the model is loaded.
func (e *Engine) Ready() bool {
	return e.State() == StateReady
}

// Err returns the load failure, or nil unless the state is StateFailed.
func (e *Engine) Err() error {
	if p := e.loadErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Device returns the configured execution target.
func (e *Engine) Device() string {
	return strings.ToLower(e.cfg.Device)
}

// ModelName returns the configured model identifier.
func (e *Engine) ModelName() string {
	return e.cfg.Identifier
}

// Dimensions returns the output vector length, 0 until ready.
func (e *Engine) Dimensions() int {
	return int(e.dimensions.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	if e.recorder != nil {
		e.recorder.SetModelState(s.String())
	}
}
