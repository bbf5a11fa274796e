// Package service implements the embedding request operations on top of
// a loaded engine: readiness gating, input validation, the query prompt
// policy and error classification.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/embedd-dev/embedd/internal/engine"
)

// DefaultQueryPrompt is prepended to every text of a query request.
const DefaultQueryPrompt = "Represent this sentence for searching relevant passages: "

// Engine is the model lifecycle the service delegates to
type Engine interface {
	State() engine.State
	Err() error
	Device() string
	ModelName() string
	Dimensions() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Options configures a Service
type Options struct {
	// QueryPrompt defaults to DefaultQueryPrompt when empty.
	QueryPrompt string
	Logger      *zap.Logger
}

// Service serves health and embed requests. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	engine      Engine
	queryPrompt string
	logger      *zap.Logger
}

// New creates a Service over eng
func New(eng Engine, opts Options) *Service {
	if opts.QueryPrompt == "" {
		opts.QueryPrompt = DefaultQueryPrompt
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		engine:      eng,
		queryPrompt: opts.QueryPrompt,
		logger:      opts.Logger,
	}
}

// QueryPrompt returns the prefix applied to query texts.
func (s *Service) QueryPrompt() string {
	return s.queryPrompt
}

// Health reports readiness. It never fails.
func (s *Service) Health() HealthStatus {
	switch s.engine.State() {
	case engine.StateReady:
		return HealthStatus{
			Status:      StatusOK,
			ModelLoaded: true,
			Device:      s.engine.Device(),
			Model:       s.engine.ModelName(),
			Dimensions:  s.engine.Dimensions(),
		}
	case engine.StateFailed:
		status := HealthStatus{
			Status: StatusLoadingModel,
			Device: DeviceUnknown,
		}
		if err := s.engine.Err(); err != nil {
			status.Error = err.Error()
		}
		return status
	default:
		return HealthStatus{
			Status: StatusLoadingModel,
			Device: DeviceUnknown,
		}
	}
}

// CheckReady returns a KindNotReady or KindFatalLoadFailure error unless
// the model is loaded.
func (s *Service) CheckReady() error {
	switch s.engine.State() {
	case engine.StateReady:
		return nil
	case engine.StateFailed:
		return &Error{Kind: KindFatalLoadFailure, Message: msgLoadFailed, Cause: s.engine.Err()}
	default:
		return &Error{Kind: KindNotReady, Message: msgNotReady}
	}
}

// Embed encodes the request's texts, one vector per text in input order.
func (s *Service) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if err := s.CheckReady(); err != nil {
		return nil, err
	}

	if req.Text.IsEmpty() {
		return nil, invalidInput(msgEmpty, nil)
	}

	texts, err := req.Text.Normalize()
	if err != nil {
		return nil, err
	}

	if req.IsQuery {
		prefixed := make([]string, len(texts))
		for i, t := range texts {
			prefixed[i] = s.queryPrompt + t
		}
		texts = prefixed
	}

	vectors, err := s.engine.Encode(ctx, texts)
	if err != nil {
		return nil, s.encodeError(err, len(texts))
	}

	s.logger.Debug("embedded texts",
		zap.Int("count", len(texts)),
		zap.Bool("is_query", req.IsQuery))

	return &EmbedResponse{Embeddings: vectors}, nil
}

func (s *Service) encodeError(err error, count int) error {
	switch {
	case errors.Is(err, engine.ErrNotReady):
		return &Error{Kind: KindNotReady, Message: msgNotReady}
	case errors.Is(err, engine.ErrLoadFailed):
		return &Error{Kind: KindFatalLoadFailure, Message: msgLoadFailed, Cause: s.engine.Err()}
	case errors.Is(err, engine.ErrEmptyInput):
		return invalidInput(msgEmpty, nil)
	}

	s.logger.Error("embedding generation failed",
		zap.Int("count", count),
		zap.Error(err))
	return &Error{Kind: KindInferenceFailure, Message: msgEncodeFailed, Cause: err}
}
