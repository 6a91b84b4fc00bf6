// Package ingestcmder provides the `shelf ingest` CLI command.
package ingestcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/cmd/shelf/sqlitepath"
	"github.com/foliohq/shelf/pkg/chunker"
	"github.com/foliohq/shelf/pkg/cliui"
	"github.com/foliohq/shelf/pkg/config"
	embeddingutils "github.com/foliohq/shelf/pkg/embeddings/utils"
	"github.com/foliohq/shelf/pkg/ingest"
	"github.com/foliohq/shelf/pkg/logger"
	"github.com/foliohq/shelf/pkg/store"
	storeutils "github.com/foliohq/shelf/pkg/store/utils"
)

const ingestLongDesc string = `Ingest documents into the shelf corpus.

Each file is split into overlapping chunks, embedded, and stored in the
document store. PDF files are converted to text first; everything else is
treated as plain text.

Examples:
  shelf ingest notes.md
  shelf ingest paper.pdf handbook.txt
  shelf ingest notes.md --chunk-size 400 --overlap 50
  shelf ingest notes.md --store memory`

const ingestShortDesc string = "Ingest documents into the corpus"

type ingestCommander struct {
	sqlitePath    string
	storeProvider string
	chunkSize     int
	overlap       int

	configDir string
	debug     bool
	v         *viper.Viper
	logger    *zap.Logger
}

var ingestFlags = config.FlagSet{
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
	config.FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "chunking.chunk_size",
		Description: "Chunk size in characters",
	},
	config.FlagOverlap: {
		Name:        "overlap",
		ViperKey:    "chunking.overlap",
		Description: "Overlap between consecutive chunks in characters",
	},
}

var ingestFlagKeys = []string{
	config.FlagSQLite,
	config.FlagStoreProvider,
	config.FlagChunkSize,
	config.FlagOverlap,
}

// NewIngestCmd creates the ingest cobra command.
func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file> [file...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, ingestFlags, ingestFlagKeys)
			cmder.v = v

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd.Context(), args)
		},
	}

	config.AddStringFlag(cmd, ingestFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, ingestFlags, config.FlagStoreProvider, &cmder.storeProvider)
	config.AddIntFlag(cmd, ingestFlags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, ingestFlags, config.FlagOverlap, &cmder.overlap)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, paths []string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

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
		return err
	}

	fmt.Println()
	for _, path := range paths {
		var result *ingest.Result
		stepErr := cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %s", filepath.Base(path)), func() error {
			var err error
			result, err = ingestFile(ctx, ingestor, path)
			return err
		})
		if stepErr != nil {
			return stepErr
		}

		fmt.Printf("    %s\n", cliui.StepStyle.Render(result.Summary()))
	}
	fmt.Println()

	return nil
}

// ingestFile routes a file to the right ingestion path by extension.
func ingestFile(ctx context.Context, ingestor *ingest.Ingestor, path string) (*ingest.Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ingestor.IngestPDF(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return ingestor.IngestText(ctx, filepath.Base(path), string(data))
}

func (c *ingestCommander) newStoreDriver(ctx context.Context) (store.Driver, error) {
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
