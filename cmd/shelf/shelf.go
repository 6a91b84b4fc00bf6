// Package shelfcmder
package shelfcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/foliohq/shelf/cmd/shelf/chat"
	configcmder "github.com/foliohq/shelf/cmd/shelf/config"
	ingestcmder "github.com/foliohq/shelf/cmd/shelf/ingest"
	reembedcmder "github.com/foliohq/shelf/cmd/shelf/reembed"
	searchcmder "github.com/foliohq/shelf/cmd/shelf/search"
	servecmder "github.com/foliohq/shelf/cmd/shelf/serve"
)

const shelfLongDesc string = `Shelf is a retrieval-augmented assistant for your documents.

Ingest documents, then search and chat over them:
  shelf serve            Run the API and MCP server
  shelf ingest <file>    Chunk, embed, and store a document
  shelf search <query>   Hybrid search over the corpus
  shelf chat <question>  Ask a question grounded in the corpus`

const shelfShortDesc string = "Shelf - Document Retrieval & Chat"

func NewShelfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelf",
		Short: shelfShortDesc,
		Long:  shelfLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .shelf/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(reembedcmder.NewReembedCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
