package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// === Backend Type Tests ===

func TestBackendType_IsValid(t *testing.T) {
	t.Run("valid backends", func(t *testing.T) {
		for _, b := range AllBackends() {
			assert.True(t, b.IsValid(), string(b))
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		assert.False(t, BackendType("torch").IsValid())
		assert.False(t, BackendType("").IsValid())
	})
}

func TestBackendType_DisplayName(t *testing.T) {
	assert.Equal(t, "Ollama (local)", BackendOllama.DisplayName())
	assert.Equal(t, "OpenAI-compatible server", BackendOpenAI.DisplayName())
	assert.Equal(t, "Deterministic hash", BackendHash.DisplayName())
	assert.Equal(t, "Unknown", BackendType("x").DisplayName())
}

// === NewFromConfig Tests ===

func TestNewFromConfig_OllamaTranslatesRegistryName(t *testing.T) {
	backend, err := NewFromConfig(&ProviderConfig{
		Backend: "ollama",
		Model:   "mixedbread-ai/mxbai-embed-large-v1",
		Ollama:  OllamaProviderSettings{URL: "http://ollama:11434"},
	})
	require.NoError(t, err)

	ollama, ok := backend.(*OllamaBackend)
	require.True(t, ok)
	assert.Equal(t, "mxbai-embed-large", ollama.ModelName())
	assert.Equal(t, "http://ollama:11434", ollama.baseURL)
}

func TestNewFromConfig_OllamaPassesUnknownModelThrough(t *testing.T) {
	backend, err := NewFromConfig(&ProviderConfig{Backend: "ollama", Model: "my-custom-embedder:v2"})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-embedder:v2", backend.ModelName())
}

func TestNewFromConfig_OpenAIUsesRepositoryName(t *testing.T) {
	backend, err := NewFromConfig(&ProviderConfig{
		Backend: "openai",
		Model:   "/app/model_data/mxbai-embed-large-v1",
		OpenAI:  OpenAIProviderSettings{URL: "http://tei:8080/v1"},
	})
	require.NoError(t, err)

	_, ok := backend.(*OpenAIBackend)
	require.True(t, ok)
	assert.Equal(t, "mixedbread-ai/mxbai-embed-large-v1", backend.ModelName())
}

func TestNewFromConfig_HashUsesRegistryDimensions(t *testing.T) {
	backend, err := NewFromConfig(&ProviderConfig{Backend: "hash", Model: "sentence-transformers/all-MiniLM-L6-v2"})
	require.NoError(t, err)

	hash, ok := backend.(*HashBackend)
	require.True(t, ok)
	assert.Equal(t, 384, hash.dimensions)
}

func TestNewFromConfig_HashUnknownModel(t *testing.T) {
	backend, err := NewFromConfig(&ProviderConfig{Backend: "hash", Model: "whatever"})
	require.NoError(t, err)
	assert.Equal(t, DefaultHashDimensions, backend.(*HashBackend).dimensions)
}

func TestNewFromConfig_UnknownBackend(t *testing.T) {
	_, err := NewFromConfig(&ProviderConfig{Backend: "torch", Model: DefaultModel})
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN_BACKEND", CodeOf(err))
	assert.Contains(t, err.Error(), "torch")
}
