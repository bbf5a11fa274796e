package embedder

import (
	"path/filepath"
	"strings"
)

// ModelInfo contains metadata about a known embedding model.
type ModelInfo struct {
	Name        string // Model repository identifier
	OllamaName  string // Name under which Ollama serves the model
	Dimensions  int    // Embedding vector dimensions
	ContextSize int    // Maximum input length in tokens
}

// EmbeddingModels maps model repository identifiers to model info.
var EmbeddingModels = map[string]ModelInfo{
	"mixedbread-ai/mxbai-embed-large-v1": {
		Name:        "mixedbread-ai/mxbai-embed-large-v1",
		OllamaName:  "mxbai-embed-large",
		Dimensions:  1024,
		ContextSize: 512,
	},
	"sentence-transformers/all-MiniLM-L6-v2": {
		Name:        "sentence-transformers/all-MiniLM-L6-v2",
		OllamaName:  "all-minilm",
		Dimensions:  384,
		ContextSize: 256,
	},
	"nomic-ai/nomic-embed-text-v1.5": {
		Name:        "nomic-ai/nomic-embed-text-v1.5",
		OllamaName:  "nomic-embed-text",
		Dimensions:  768,
		ContextSize: 8192,
	},
	"BAAI/bge-large-en-v1.5": {
		Name:        "BAAI/bge-large-en-v1.5",
		OllamaName:  "bge-large",
		Dimensions:  1024,
		ContextSize: 512,
	},
	"Snowflake/snowflake-arctic-embed-l": {
		Name:        "Snowflake/snowflake-arctic-embed-l",
		OllamaName:  "snowflake-arctic-embed",
		Dimensions:  1024,
		ContextSize: 512,
	},
}

// DefaultModel is the identifier used when none is configured.
const DefaultModel = "mixedbread-ai/mxbai-embed-large-v1"

// LookupModel resolves a model identifier to registry info. The identifier
// may be a repository name, an Ollama model name (with or without a tag), or
// a local directory whose base name matches either. Returns nil for models
// not in the registry.
func LookupModel(identifier string) *ModelInfo {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}
	if info, ok := EmbeddingModels[identifier]; ok {
		return &info
	}

	base := strings.ToLower(filepath.Base(filepath.Clean(identifier)))
	base = strings.TrimSuffix(base, ":latest")
	for _, info := range EmbeddingModels {
		repoBase := strings.ToLower(info.Name[strings.LastIndex(info.Name, "/")+1:])
		if base == repoBase || base == info.OllamaName {
			return &info
		}
	}
	return nil
}
