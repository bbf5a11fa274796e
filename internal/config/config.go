package config

import (
	"net"
	"strconv"
	"time"
)

// Config represents the complete embedd configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server" mapstructure:"server"`
	Model   ModelConfig   `yaml:"model" json:"model" mapstructure:"model"`
	Ollama  OllamaConfig  `yaml:"ollama" json:"ollama" mapstructure:"ollama"`
	OpenAI  OpenAIConfig  `yaml:"openai" json:"openai" mapstructure:"openai"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                   string `yaml:"host" json:"host" mapstructure:"host"`
	Port                   int    `yaml:"port" json:"port" mapstructure:"port"`
	LogLevel               string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogFormat              string `yaml:"log_format" json:"log_format" mapstructure:"log_format"`
	RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds" json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
	// PIDFile, when set, is written on start and removed on shutdown.
	PIDFile string `yaml:"pid_file" json:"pid_file,omitempty" mapstructure:"pid_file"`
}

// ModelConfig contains embedding model settings
type ModelConfig struct {
	// Path is the model identifier, e.g. "mixedbread-ai/mxbai-embed-large-v1".
	Path               string `yaml:"path" json:"path" mapstructure:"path"`
	Backend            string `yaml:"backend" json:"backend" mapstructure:"backend"`
	Device             string `yaml:"device" json:"device" mapstructure:"device"`
	TruncateDim        int    `yaml:"truncate_dim" json:"truncate_dim" mapstructure:"truncate_dim"`
	BatchSize          int    `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	MaxConcurrency     int    `yaml:"max_concurrency" json:"max_concurrency" mapstructure:"max_concurrency"`
	Serialize          bool   `yaml:"serialize" json:"serialize" mapstructure:"serialize"`
	QueryPrompt        string `yaml:"query_prompt" json:"query_prompt" mapstructure:"query_prompt"`
	LoadTimeoutSeconds int    `yaml:"load_timeout_seconds" json:"load_timeout_seconds" mapstructure:"load_timeout_seconds"`
}

// OllamaConfig contains settings for the ollama backend
type OllamaConfig struct {
	URL       string `yaml:"url" json:"url" mapstructure:"url"`
	KeepAlive string `yaml:"keep_alive" json:"keep_alive" mapstructure:"keep_alive"`
}

// OpenAIConfig contains settings for OpenAI-compatible inference servers
type OpenAIConfig struct {
	URL    string `yaml:"url" json:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" json:"api_key,omitempty" mapstructure:"api_key"`
}

// MetricsConfig controls the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// Address returns the host:port address the server listens on.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RequestTimeout returns the per-request timeout as time.Duration
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown timeout as time.Duration
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// LoadTimeout returns the model load timeout as time.Duration.
// Zero means no timeout.
func (m ModelConfig) LoadTimeout() time.Duration {
	return time.Duration(m.LoadTimeoutSeconds) * time.Second
}
