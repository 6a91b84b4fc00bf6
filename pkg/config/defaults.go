package config

import (
	"github.com/foliohq/shelf/pkg/assembler"
	"github.com/foliohq/shelf/pkg/chunker"
	"github.com/foliohq/shelf/pkg/retriever"
)

const (
	defaultAPIListen = ":8082"

	defaultStoreProvider   = "sqlite"
	defaultQdrantHost      = "localhost"
	defaultQdrantPort      = 6334
	defaultCollection      = "shelf_chunks"

	defaultOllamaTarget        = "http://localhost:11434"
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultChatProvider = "ollama"
	defaultChatModel    = "llama3.2"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: StoreConfig{
			Provider:   defaultStoreProvider,
			QdrantHost: defaultQdrantHost,
			QdrantPort: defaultQdrantPort,
			Collection: defaultCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chunking: ChunkingConfig{
			ChunkSize: chunker.DefaultChunkSize,
			Overlap:   chunker.DefaultOverlap,
		},
		Retrieval: RetrievalConfig{
			Limit:     retriever.DefaultLimit,
			MinScore:  0,
			Overfetch: retriever.DefaultOverfetch,
		},
		Chat: ChatConfig{
			Provider:      defaultChatProvider,
			Target:        defaultOllamaTarget,
			Model:         defaultChatModel,
			ContextBudget: assembler.DefaultBudget,
		},
	}
}
