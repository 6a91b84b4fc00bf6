package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent shelf configuration stored as config.toml
// in the .shelf/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int              `toml:"version"`
	Storage     StorageConfig    `toml:"storage"`
	API         APIConfig        `toml:"api"`
	VectorStore StoreConfig      `toml:"vector_store"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Chunking    ChunkingConfig   `toml:"chunking"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Chat        ChatConfig       `toml:"chat"`
}

// StorageConfig holds shared storage settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	QdrantHost string `toml:"qdrant_host,omitempty"`
	QdrantPort int    `toml:"qdrant_port,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChunkingConfig holds the chunking policy.
type ChunkingConfig struct {
	ChunkSize int `toml:"chunk_size,omitempty"`
	Overlap   int `toml:"overlap,omitempty"`
}

// RetrievalConfig holds hybrid retrieval tuning.
type RetrievalConfig struct {
	Limit     int     `toml:"limit,omitempty"`
	MinScore  float64 `toml:"min_score,omitempty"`
	Overfetch int     `toml:"overfetch,omitempty"`
}

// ChatConfig holds generation settings.
type ChatConfig struct {
	Provider      string `toml:"provider,omitempty"`
	Target        string `toml:"target,omitempty"`
	Model         string `toml:"model,omitempty"`
	ContextBudget int    `toml:"context_budget,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.qdrant_host": {
		get: func(c *Config) string { return c.VectorStore.QdrantHost },
		set: func(c *Config, v string) error { c.VectorStore.QdrantHost = v; return nil },
	},
	"vector_store.qdrant_port": {
		get: func(c *Config) string {
			if c.VectorStore.QdrantPort == 0 {
				return ""
			}
			return strconv.Itoa(c.VectorStore.QdrantPort)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for vector_store.qdrant_port: %w", err)
			}
			c.VectorStore.QdrantPort = n
			return nil
		},
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"chunking.chunk_size": {
		get: func(c *Config) string {
			if c.Chunking.ChunkSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Chunking.ChunkSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chunking.chunk_size: %w", err)
			}
			c.Chunking.ChunkSize = n
			return nil
		},
	},
	"chunking.overlap": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunking.Overlap) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chunking.overlap: %w", err)
			}
			c.Chunking.Overlap = n
			return nil
		},
	},
	"retrieval.limit": {
		get: func(c *Config) string {
			if c.Retrieval.Limit == 0 {
				return ""
			}
			return strconv.Itoa(c.Retrieval.Limit)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.limit: %w", err)
			}
			c.Retrieval.Limit = n
			return nil
		},
	},
	"retrieval.min_score": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Retrieval.MinScore, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.min_score: %w", err)
			}
			c.Retrieval.MinScore = f
			return nil
		},
	},
	"retrieval.overfetch": {
		get: func(c *Config) string {
			if c.Retrieval.Overfetch == 0 {
				return ""
			}
			return strconv.Itoa(c.Retrieval.Overfetch)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.overfetch: %w", err)
			}
			c.Retrieval.Overfetch = n
			return nil
		},
	},
	"chat.provider": {
		get: func(c *Config) string { return c.Chat.Provider },
		set: func(c *Config, v string) error { c.Chat.Provider = v; return nil },
	},
	"chat.target": {
		get: func(c *Config) string { return c.Chat.Target },
		set: func(c *Config, v string) error { c.Chat.Target = v; return nil },
	},
	"chat.model": {
		get: func(c *Config) string { return c.Chat.Model },
		set: func(c *Config, v string) error { c.Chat.Model = v; return nil },
	},
	"chat.context_budget": {
		get: func(c *Config) string {
			if c.Chat.ContextBudget == 0 {
				return ""
			}
			return strconv.Itoa(c.Chat.ContextBudget)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chat.context_budget: %w", err)
			}
			c.Chat.ContextBudget = n
			return nil
		},
	},
}
