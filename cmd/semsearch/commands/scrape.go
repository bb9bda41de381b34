package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/davrd/semsearch/internal/logging"
	"github.com/davrd/semsearch/internal/scrape"
)

// NewScrapeCmd constructs the `semsearch scrape` command, which runs a single
// fetch→extract→embed→upsert pass for one URL and exits. Useful for seeding
// the index or debugging extraction without running the server.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Run a one-shot ingestion pass for a URL",
		Long: `Fetch the given page once, extract its articles, embed them, and upsert
them into the vector index. Prints the number of articles stored.

Examples:
  semsearch scrape https://example.com/articles
  EMBEDDING_PROVIDER=openai semsearch scrape https://example.com/articles`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}
			defer func() { _ = idx.Close() }()

			fetcher := scrape.NewFetcher(30*time.Second, "")
			supervisor, err := scrape.NewSupervisor(emb, idx, fetcher, scrapeConfigFromEnv(), nil, log)
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}
			defer supervisor.Close()

			stored, err := supervisor.RunOnce(ctx, args[0])
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}

			fmt.Printf("stored %d articles from %s\n", stored, args[0])
			return nil
		},
	}

	return cmd
}
