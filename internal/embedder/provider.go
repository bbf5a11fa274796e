package embedder

import (
	"fmt"
	"time"
)

// BackendType represents the kind of inference backend
type BackendType string

const (
	// BackendOllama runs the model in a local Ollama runtime
	BackendOllama BackendType = "ollama"
	// BackendOpenAI runs the model behind an OpenAI-compatible server
	BackendOpenAI BackendType = "openai"
	// BackendHash is the deterministic in-process backend
	BackendHash BackendType = "hash"
)

// IsValid returns true if the backend type is recognized
func (b BackendType) IsValid() bool {
	switch b {
	case BackendOllama, BackendOpenAI, BackendHash:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the backend
func (b BackendType) DisplayName() string {
	switch b {
	case BackendOllama:
		return "Ollama (local)"
	case BackendOpenAI:
		return "OpenAI-compatible server"
	case BackendHash:
		return "Deterministic hash"
	default:
		return "Unknown"
	}
}

// AllBackends returns all available backend types
func AllBackends() []BackendType {
	return []BackendType{
		BackendOllama,
		BackendOpenAI,
		BackendHash,
	}
}

// ProviderConfig holds the configuration for creating a backend
type ProviderConfig struct {
	Backend string
	// Model is the configured identifier: a repository name, a runtime
	// model name, or a local staged directory.
	Model   string
	Timeout time.Duration
	Ollama  OllamaProviderSettings
	OpenAI  OpenAIProviderSettings
}

// OllamaProviderSettings holds Ollama-specific settings
type OllamaProviderSettings struct {
	URL       string
	KeepAlive string
}

// OpenAIProviderSettings holds settings for OpenAI-compatible servers
type OpenAIProviderSettings struct {
	URL    string
	APIKey string
}

// NewFromConfig creates a Backend based on the provider configuration.
// Registry models are translated to the name the runtime knows them by.
func NewFromConfig(cfg *ProviderConfig) (Backend, error) {
	backend := BackendType(cfg.Backend)
	if !backend.IsValid() {
		return nil, ErrUnknownBackend.WithMessage(fmt.Sprintf("unknown inference backend: %s", cfg.Backend))
	}

	info := LookupModel(cfg.Model)

	switch backend {
	case BackendOllama:
		model := cfg.Model
		if info != nil {
			model = info.OllamaName
		}
		return NewOllamaBackend(OllamaConfig{
			BaseURL:   cfg.Ollama.URL,
			Model:     model,
			KeepAlive: cfg.Ollama.KeepAlive,
			Timeout:   cfg.Timeout,
		}), nil

	case BackendOpenAI:
		model := cfg.Model
		if info != nil {
			model = info.Name
		}
		return NewOpenAIBackend(OpenAIConfig{
			BaseURL: cfg.OpenAI.URL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   model,
			Timeout: cfg.Timeout,
		}), nil

	case BackendHash:
		dims := DefaultHashDimensions
		if info != nil {
			dims = info.Dimensions
		}
		return NewHashBackend(cfg.Model, dims), nil

	default:
		return nil, ErrUnknownBackend.WithMessage(fmt.Sprintf("unknown inference backend: %s", cfg.Backend))
	}
}
