package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
)

var (
	searchLimit  int
	searchSource string
	searchExpand bool
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested sources",
	Long: `Finds the passages most relevant to a query.

Candidates come from vector similarity and are reranked with lexical
overlap, so exact terms in the query still count.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "restrict the search to one source id")
	searchCmd.Flags().BoolVar(&searchExpand, "expand", false, "attach neighbouring chunks to each result")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}

	results, err := retrievalService.Retrieve(ctx, args[0], driving.RetrieveOptions{
		TopK:          searchLimit,
		SourceID:      searchSource,
		ExpandContext: searchExpand,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printResults(cmd, results)
	return nil
}

func printResults(cmd *cobra.Command, results []domain.ScoredChunk) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, location(r.Chunk), r.Combined)
		cmd.Printf("      %s\n", snippet(r.Chunk.Content))
		for _, c := range r.Context {
			cmd.Printf("      ... %s\n", snippet(c.Content))
		}
		cmd.Println()
	}
}

// location renders where the chunk sits in its source.
func location(c domain.TextChunk) string {
	parts := []string{c.SourceID}
	if c.Section != "" {
		parts = append(parts, c.Section)
	}
	if c.Page > 0 {
		parts = append(parts, fmt.Sprintf("p.%d", c.Page))
	}
	return strings.Join(parts, " / ")
}

func snippet(content string) string {
	const max = 120
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= max {
		return content
	}
	cut := strings.LastIndexByte(content[:max], ' ')
	if cut < 0 {
		cut = max
	}
	return content[:cut] + "..."
}
