package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List the documents stored in the knowledge base",
	RunE:  runDocs,
}

func init() {
	docsCmd.Flags().Bool("json", false, "output the list as JSON")
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	docs, err := idx.Documents(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("The knowledge base is empty. Ingest documents with `docbase ingest`.")
		return nil
	}

	fmt.Printf("%d document(s):\n\n", len(docs))
	for _, d := range docs {
		fmt.Printf("%s  %s\n", d.ID, d.Title)
		fmt.Printf("%*s  %s", len(d.ID), "", d.SourceRef)
		if d.Technology != "" {
			fmt.Printf("  [%s]", d.Technology)
		}
		fmt.Println()
	}
	return nil
}
