// Package commands defines all Cobra CLI commands for the semsearch binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/davrd/semsearch/internal/audit"
	"github.com/davrd/semsearch/internal/config"
	"github.com/davrd/semsearch/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "semsearch",
		Short: "semsearch — semantic article search with background ingestion",
		Long: `semsearch serves a semantic search API over a corpus of articles that it
keeps fresh itself: tracked pages are scraped on an interval, their articles
embedded and upserted into a vector index, and incoming queries are matched
against that index by cosine similarity.

The embedding backend is selected via the EMBEDDING_PROVIDER environment
variable or a YAML config file (~/.semsearch/config.yaml).
See 'semsearch --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is a development convenience; absence is not an error.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.semsearch/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewScrapeCmd(),
		NewVersionCmd(),
	)

	return root
}
