package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the indexed VA.gov pages",
	Long:  `Embeds the query and returns the most similar chunks from the document store, without calling any chat model.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", vectordb.DefaultTopK, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openDocumentStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if n, err := store.Count(ctx); err != nil {
		return err
	} else if n == 0 {
		fmt.Println("Document store is empty. Run `vachat ingest` first.")
		return nil
	}

	results, err := store.Search(ctx, args[0], limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	fmt.Print(vectordb.FormatResults(results))
	return nil
}

type searchResultJSON struct {
	Rank    int     `json:"rank"`
	Score   float32 `json:"score"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	ChunkID string  `json:"chunk_id"`
	Summary string  `json:"summary"`
}

func printSearchResultsJSON(results []vectordb.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for i, r := range results {
		out = append(out, searchResultJSON{
			Rank:    i + 1,
			Score:   r.Score,
			URL:     r.Chunk.URL,
			Title:   r.Chunk.Title,
			ChunkID: r.Chunk.ID,
			Summary: truncate(r.Chunk.Text, 200),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
