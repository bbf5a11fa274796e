package config

import (
	"github.com/embedd-dev/embedd/internal/embedder"
	"github.com/embedd-dev/embedd/internal/service"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8000,
			LogLevel:               "info",
			LogFormat:              "json",
			RequestTimeoutSeconds:  60,
			ShutdownTimeoutSeconds: 10,
		},
		Model: ModelConfig{
			Path:               embedder.DefaultModel,
			Backend:            string(embedder.BackendOllama),
			Device:             "cpu",
			TruncateDim:        0,
			BatchSize:          32,
			MaxConcurrency:     4,
			Serialize:          false,
			QueryPrompt:        service.DefaultQueryPrompt,
			LoadTimeoutSeconds: 300,
		},
		Ollama: OllamaConfig{
			URL:       "http://localhost:11434",
			KeepAlive: "-1m",
		},
		OpenAI: OpenAIConfig{
			URL: "http://localhost:8080/v1",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
