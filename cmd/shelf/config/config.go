// Package configcmder provides the config command for managing persistent
// shelf configuration stored in the .shelf/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent shelf configuration.

Configuration is stored as config.toml in the .shelf/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, api.listen,
  vector_store.provider, vector_store.qdrant_host, vector_store.qdrant_port,
  vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  chunking.chunk_size, chunking.overlap,
  retrieval.limit, retrieval.min_score, retrieval.overfetch,
  chat.provider, chat.target, chat.model, chat.context_budget

Use subcommands to get, set, or list configuration values:
  shelf config set <key> <value>    Set a configuration value
  shelf config get <key>            Get a configuration value
  shelf config list                 List all configuration values

Examples:
  shelf config set vector_store.provider qdrant
  shelf config set embedding.model nomic-embed-text
  shelf config get retrieval.limit
  shelf config list`

const configShortDesc string = "Manage persistent shelf configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
