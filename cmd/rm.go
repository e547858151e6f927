package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [document-id]",
	Short: "Remove a document and all its chunks from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		docID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		if _, err := idx.Document(ctx, docID); err != nil {
			return fmt.Errorf("document %s not found", docID)
		}
		if err := idx.Delete(ctx, docID); err != nil {
			return err
		}

		fmt.Printf("Removed document %s\n", docID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
