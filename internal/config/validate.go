package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/embedd-dev/embedd/internal/embedder"
	"github.com/embedd-dev/embedd/internal/logging"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validDevices = map[string]bool{
	"cpu": true,
}

// Validate checks the configuration for errors and returns all validation errors found
func Validate(cfg *Config) ValidationErrors {
	var errors ValidationErrors
	add := func(field, msg string) {
		errors = append(errors, ValidationError{Field: field, Message: msg})
	}

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		add("server.port", "must be between 0 and 65535")
	}
	if _, err := logging.ParseLevel(cfg.Server.LogLevel); err != nil {
		add("server.log_level", fmt.Sprintf("invalid log level '%s'; valid values are: debug, info, warn (or warning), error", cfg.Server.LogLevel))
	}
	if !validLogFormats[cfg.Server.LogFormat] {
		add("server.log_format", fmt.Sprintf("invalid log format '%s'; valid values are: json, console", cfg.Server.LogFormat))
	}
	if cfg.Server.RequestTimeoutSeconds < 1 {
		add("server.request_timeout_seconds", "must be at least 1")
	}
	if cfg.Server.ShutdownTimeoutSeconds < 0 {
		add("server.shutdown_timeout_seconds", "must be non-negative")
	}

	// Model validation
	if strings.TrimSpace(cfg.Model.Path) == "" {
		add("model.path", "must not be empty")
	}
	backend := embedder.BackendType(cfg.Model.Backend)
	if !backend.IsValid() {
		names := make([]string, 0, len(embedder.AllBackends()))
		for _, b := range embedder.AllBackends() {
			names = append(names, string(b))
		}
		add("model.backend", fmt.Sprintf("invalid backend '%s'; valid values are: %s", cfg.Model.Backend, strings.Join(names, ", ")))
	}
	if !validDevices[strings.ToLower(cfg.Model.Device)] {
		add("model.device", fmt.Sprintf("unsupported device '%s'; only cpu is supported", cfg.Model.Device))
	}
	if cfg.Model.TruncateDim < 0 {
		add("model.truncate_dim", "must be non-negative")
	}
	if cfg.Model.BatchSize < 1 {
		add("model.batch_size", "must be at least 1")
	}
	if cfg.Model.MaxConcurrency < 1 {
		add("model.max_concurrency", "must be at least 1")
	}
	if cfg.Model.LoadTimeoutSeconds < 0 {
		add("model.load_timeout_seconds", "must be non-negative")
	}

	// Backend endpoints
	switch backend {
	case embedder.BackendOllama:
		if msg := checkURL(cfg.Ollama.URL); msg != "" {
			add("ollama.url", msg)
		}
	case embedder.BackendOpenAI:
		if msg := checkURL(cfg.OpenAI.URL); msg != "" {
			add("openai.url", msg)
		}
	}

	return errors
}

func checkURL(raw string) string {
	if raw == "" {
		return "must not be empty"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Sprintf("invalid URL '%s'; expected http(s)://host[:port]", raw)
	}
	return ""
}

// ValidateOrError is a convenience function that returns an error if validation fails
func ValidateOrError(cfg *Config) error {
	errors := Validate(cfg)
	if errors.HasErrors() {
		return errors
	}
	return nil
}
