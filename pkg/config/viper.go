package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/foliohq/shelf/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the SHELF_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (SHELF_API_LISTEN, SHELF_RETRIEVAL_LIMIT, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: SHELF_API_LISTEN, SHELF_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.qdrant_host", d.VectorStore.QdrantHost)
	v.SetDefault("vector_store.qdrant_port", d.VectorStore.QdrantPort)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Chunking
	v.SetDefault("chunking.chunk_size", d.Chunking.ChunkSize)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)

	// Retrieval
	v.SetDefault("retrieval.limit", d.Retrieval.Limit)
	v.SetDefault("retrieval.min_score", d.Retrieval.MinScore)
	v.SetDefault("retrieval.overfetch", d.Retrieval.Overfetch)

	// Chat
	v.SetDefault("chat.provider", d.Chat.Provider)
	v.SetDefault("chat.target", d.Chat.Target)
	v.SetDefault("chat.model", d.Chat.Model)
	v.SetDefault("chat.context_budget", d.Chat.ContextBudget)
}
