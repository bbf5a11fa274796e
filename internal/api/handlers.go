package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/embedd-dev/embedd/internal/service"
)

// DefaultMaxBodyBytes bounds the size of an embed request body.
const DefaultMaxBodyBytes int64 = 8 << 20

// Service defines the operations the handlers serve
type Service interface {
	Health() service.HealthStatus
	CheckReady() error
	Embed(ctx context.Context, req service.EmbedRequest) (*service.EmbedResponse, error)
}

// Handler handles HTTP requests for the embedd API
type Handler struct {
	svc          Service
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewHandler creates a new Handler instance
func NewHandler(svc Service, logger *zap.Logger, maxBodyBytes int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		svc:          svc,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// Health handles GET /health requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

// Embed handles POST /embed requests
func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	// Readiness is reported before the body is looked at.
	if err := h.svc.CheckReady(); err != nil {
		h.writeServiceError(w, err)
		return
	}

	var req service.EmbedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, ErrRequestTooLarge)
			return
		}
		WriteBadRequest(w, ErrInvalidJSON.WithDetail(ErrInvalidJSON.Detail+": "+err.Error()))
		return
	}

	resp, err := h.svc.Embed(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && r.Context().Err() != nil {
			WriteError(w, http.StatusGatewayTimeout, ErrRequestTimeout)
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status, apiErr := FromServiceError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("embed request failed", zap.String("code", apiErr.Code), zap.Error(err))
	}
	WriteError(w, status, apiErr)
}

// NotFound handles requests for unknown routes
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, ErrRouteNotFound)
}

// MethodNotAllowed handles requests with an unsupported method
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}
