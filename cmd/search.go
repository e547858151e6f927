package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docbase-dev/docbase/internal/kb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Runs hybrid retrieval over the knowledge base: keyword and semantic
vector search fused into a single ranked result list. Works without
the embedding provider too, degrading to keyword-only matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
	searchCmd.Flags().String("technology", "", "restrict results to this technology tag")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	technology, _ := cmd.Flags().GetString("technology")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return err
	}
	if err := embedder.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: embedding provider unavailable, keyword search only: %v\n", err)
	}
	defer embedder.Shutdown()

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	retr := buildRetriever(cfg, idx, embedder)

	results, err := retr.Retrieve(ctx, queryText, limit, kb.Filters{Technology: technology})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Printf("Found %d result(s):\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s (%.0f%%)\n", i+1, r.Document.Title, r.FusedScore*100)
		fmt.Printf("   %s", r.Document.SourceRef)
		if r.Document.Technology != "" {
			fmt.Printf("  [%s]", r.Document.Technology)
		}
		fmt.Printf("\n   %s\n\n", r.Excerpt)
	}
	return nil
}
