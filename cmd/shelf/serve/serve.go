// Package servecmder provides the serve command for running the shelf servers.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/api"
	"github.com/foliohq/shelf/api/mcp"
	"github.com/foliohq/shelf/cmd/shelf/sqlitepath"
	"github.com/foliohq/shelf/pkg/assembler"
	"github.com/foliohq/shelf/pkg/chat"
	"github.com/foliohq/shelf/pkg/chunker"
	"github.com/foliohq/shelf/pkg/config"
	embeddingutils "github.com/foliohq/shelf/pkg/embeddings/utils"
	"github.com/foliohq/shelf/pkg/ingest"
	"github.com/foliohq/shelf/pkg/llm"
	llmollama "github.com/foliohq/shelf/pkg/llm/ollama"
	"github.com/foliohq/shelf/pkg/logger"
	"github.com/foliohq/shelf/pkg/retriever"
	"github.com/foliohq/shelf/pkg/store"
	storeutils "github.com/foliohq/shelf/pkg/store/utils"
)

type ServeCommander struct {
	listen            string
	sqlitePath        string
	storeProvider     string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	chatModel         string

	configDir string
	debug     bool
	v         *viper.Viper
	logger    *zap.Logger
}

// serveFlags is the flag registry for the serve command. Each entry binds a
// CLI flag to its dotted viper key so flag > env > file > default holds.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite database",
	},
	config.FlagStoreProvider: {
		Name:        "store",
		ViperKey:    "vector_store.provider",
		Description: "Document store provider (sqlite, qdrant, memory)",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, openai)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagChatModel: {
		Name:        "chat-model",
		ViperKey:    "chat.model",
		Description: "Chat model used for answer generation",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagStoreProvider,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagChatModel,
}

const serveLongDesc string = `Run the shelf API server.

The server exposes document ingestion, hybrid search, and chat endpoints,
plus an MCP endpoint under /mcp for agent tooling.

Configuration is resolved from flags, SHELF_* environment variables, and
config.toml in the .shelf/ directory, in that order of precedence.`

const serveShortDesc string = "Run the shelf API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.v = v

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagStoreProvider, &cmder.storeProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagChatModel, &cmder.chatModel)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()
	v := c.v

	driver, err := c.newStoreDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		Dimensions:   v.GetUint("embedding.dimensions"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	retr := retriever.NewRetriever(driver, embedder, c.logger)
	opts := retriever.Options{
		Limit:     v.GetInt("retrieval.limit"),
		MinScore:  float32(v.GetFloat64("retrieval.min_score")),
		Overfetch: v.GetInt("retrieval.overfetch"),
	}

	ingestor, err := ingest.NewIngestor(ingest.Config{
		Store:    driver,
		Embedder: embedder,
		Policy: chunker.Policy{
			ChunkSize: v.GetInt("chunking.chunk_size"),
			Overlap:   v.GetInt("chunking.overlap"),
		},
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingestor: %w", err)
	}

	chatter := c.newChatter(retr, opts)

	apiServer, err := api.NewServer(api.Config{
		ListenAddr: v.GetString("api.listen"),
		Storer:     driver,
		Retriever:  retr,
		Ingestor:   ingestor,
		Chatter:    chatter,
		Retrieval:  opts,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever: retr,
		Retrieval: opts,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	apiServer.Mount("/mcp", mcpServer.Handler())

	c.logger.Info("starting shelf server",
		zap.String("listen", v.GetString("api.listen")),
		zap.String("store", v.GetString("vector_store.provider")),
		zap.String("embedding_provider", v.GetString("embedding.provider")),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

func (c *ServeCommander) newStoreDriver(ctx context.Context) (store.Driver, error) {
	v := c.v

	sqlitePath := ""
	if v.GetString("vector_store.provider") == "sqlite" {
		var err error
		sqlitePath, err = sqlitepath.Resolve(v.GetString("storage.sqlite_path"), c.configDir)
		if err != nil {
			return nil, err
		}
		c.logger.Info("using SQLite storage", zap.String("path", sqlitePath))
	}

	return storeutils.NewDriver(ctx, &storeutils.NewDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		SQLitePath:   sqlitePath,
		QdrantHost:   v.GetString("vector_store.qdrant_host"),
		QdrantPort:   v.GetInt("vector_store.qdrant_port"),
		Collection:   v.GetString("vector_store.collection"),
		Dimensions:   v.GetUint("embedding.dimensions"),
		Logger:       c.logger,
	})
}

// newChatter wires the answer pipeline when a supported chat provider is
// configured. A missing or unsupported provider disables the chat endpoint
// rather than failing the server.
func (c *ServeCommander) newChatter(retr *retriever.Retriever, opts retriever.Options) *chat.Chatter {
	v := c.v

	var generator llm.Generator
	switch provider := v.GetString("chat.provider"); provider {
	case "ollama":
		gen, err := llmollama.NewGenerator(llmollama.GeneratorConfig{
			BaseURL: v.GetString("chat.target"),
			Model:   v.GetString("chat.model"),
		})
		if err != nil {
			c.logger.Warn("chat generator unavailable", zap.Error(err))
			return nil
		}
		generator = gen
	default:
		c.logger.Warn("unsupported chat provider, chat endpoint disabled",
			zap.String("provider", provider),
		)
		return nil
	}

	return chat.NewChatter(
		retr,
		assembler.NewAssembler(v.GetInt("chat.context_budget")),
		generator,
		opts,
		c.logger,
	)
}
