package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/corpus"
	"github.com/ziadkadry99/vachat/internal/progress"
	"github.com/ziadkadry99/vachat/internal/vectordb"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [globs...]",
	Short: "Build the document store from crawled VA.gov pages",
	Long: `Loads crawler output files (JSON arrays of {url, title, content}), chunks and
embeds every page and persists the index. Ingestion only happens into an empty
store; use --rebuild to clear an existing index first. With no arguments the
store.content_files globs from the config are used.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("rebuild", false, "clear the existing index before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild, _ := cmd.Flags().GetBool("rebuild")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Store.ContentFiles
	}

	loader, err := corpus.NewLoader(cfg.Store.MinContentLen, nil)
	if err != nil {
		return err
	}
	docs, err := loader.Load(patterns)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Loaded %d pages\n", len(docs))

	reporter := progress.NewReporter("Embedding chunks")
	store, err := openDocumentStore(ctx, cfg, vectordb.WithProgress(reporter))
	if err != nil {
		return err
	}
	defer store.Close()

	if rebuild {
		fmt.Fprintf(os.Stderr, "Clearing existing index...\n")
		if err := store.Rebuild(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	stats, err := store.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if stats.Skipped {
		n, _ := store.Count(ctx)
		fmt.Printf("Store already holds %d chunks; nothing ingested. Use --rebuild to re-index.\n", n)
		return nil
	}
	fmt.Printf("Ingested %d chunks from %d pages in %s\n", stats.Chunks, stats.Documents, time.Since(start).Round(time.Millisecond))
	return nil
}
