package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docbase-dev/docbase/internal/kb"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and get a cited answer from the knowledge base",
	Long: `Retrieves the most relevant material for the question and synthesizes
an answer from it, with citations back to the source documents. When
the LLM provider is unreachable the top retrieved excerpt is returned
instead of a generated answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("technology", "", "restrict sources to this technology tag")
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

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
		fmt.Fprintf(os.Stderr, "Warning: embedding provider unavailable, keyword retrieval only: %v\n", err)
	}
	defer embedder.Shutdown()

	provider, err := createLLMProvider(cfg)
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	retr := buildRetriever(cfg, idx, embedder)
	orch := buildOrchestrator(cfg, retr, provider)

	answer, err := orch.Ask(ctx, question, kb.Filters{Technology: technology})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.AnswerText)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range answer.Citations {
			fmt.Printf("  - %s (%s, %.0f%% relevant)\n", c.Title, c.SourceRef, c.RelevancePct)
		}
	}
	if verbose && answer.Reasoning != "" {
		fmt.Printf("\n%s\n", answer.Reasoning)
	}
	return nil
}
