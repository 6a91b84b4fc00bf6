// Package reembedcmder provides the `shelf reembed` CLI command.
package reembedcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/cmd/shelf/sqlitepath"
	"github.com/foliohq/shelf/pkg/config"
	embeddingutils "github.com/foliohq/shelf/pkg/embeddings/utils"
	"github.com/foliohq/shelf/pkg/logger"
	"github.com/foliohq/shelf/pkg/reembed"
	"github.com/foliohq/shelf/pkg/store"
	storeutils "github.com/foliohq/shelf/pkg/store/utils"
)

const reembedLongDesc string = `Re-embed every stored chunk with the configured embedding model.

Walks the full corpus and regenerates each chunk's embedding, replacing the
stored vector in place. Use this after switching embedding models so vector
search stays consistent with the new model.

Examples:
  shelf reembed
  shelf reembed --dry-run
  shelf reembed --embedding-model nomic-embed-text --batch-size 32`

const reembedShortDesc string = "Re-embed the full corpus"

type reembedCommander struct {
	sqlitePath        string
	storeProvider     string
	embeddingProvider string
	embeddingModel    string
	batchSize         int
	dryRun            bool

	configDir string
	debug     bool
	v         *viper.Viper
	logger    *zap.Logger
}

var reembedFlags = config.FlagSet{
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
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
}

var reembedFlagKeys = []string{
	config.FlagSQLite,
	config.FlagStoreProvider,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingModel,
}

// NewReembedCmd creates the reembed cobra command.
func NewReembedCmd() *cobra.Command {
	cmder := &reembedCommander{}

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: reembedShortDesc,
		Long:  reembedLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, reembedFlags, reembedFlagKeys)
			cmder.v = v

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd.Context(), cmd)
		},
	}

	config.AddStringFlag(cmd, reembedFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, reembedFlags, config.FlagStoreProvider, &cmder.storeProvider)
	config.AddStringFlag(cmd, reembedFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, reembedFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", reembed.DefaultBatchSize, "Chunks embedded per batch")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Preview the work without writing")

	return cmd
}

func (c *reembedCommander) run(ctx context.Context, cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v := c.v

	if c.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run mode — no changes will be written")
	}

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

	r := reembed.NewReembedder(driver, embedder, reembed.Options{
		BatchSize: c.batchSize,
		DryRun:    c.dryRun,
	}, c.logger)

	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
	return nil
}

func (c *reembedCommander) newStoreDriver(ctx context.Context) (store.Driver, error) {
	v := c.v

	sqlitePath := ""
	if v.GetString("vector_store.provider") == "sqlite" {
		var err error
		sqlitePath, err = sqlitepath.Resolve(v.GetString("storage.sqlite_path"), c.configDir)
		if err != nil {
			return nil, err
		}
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
