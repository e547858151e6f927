package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docbase-dev/docbase/internal/ingest"
	"github.com/docbase-dev/docbase/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents from a directory into the knowledge base",
	Long: `Walks the given directory (default: current directory), extracts text
from markdown and plain-text files, and stores them as searchable,
embedded documents. Re-ingesting the same files replaces their
previous versions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("technology", "", "technology tag applied to every ingested document")
	ingestCmd.Flags().StringSlice("include", nil, "glob patterns to include (default: markdown and text files)")
	ingestCmd.Flags().StringSlice("exclude", nil, "glob patterns to exclude")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	technology, _ := cmd.Flags().GetString("technology")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(include) == 0 {
		include = cfg.Include
	}
	if len(exclude) == 0 {
		exclude = cfg.Exclude
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return err
	}
	if err := embedder.Initialize(ctx); err != nil {
		// Without embeddings the documents are still ingested and serve
		// keyword search.
		fmt.Fprintf(os.Stderr, "Warning: embedding provider unavailable, ingesting keyword-only: %v\n", err)
	}
	defer embedder.Shutdown()

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	svc := buildIngestor(cfg, idx, embedder)

	files, err := ingest.Walk(ingest.WalkConfig{
		RootDir: root,
		Include: include,
		Exclude: exclude,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No ingestable files found.")
		return nil
	}

	reporter := progress.NewReporter()
	reporter.Start(len(files))

	var ingested, failed, chunks int
	for i, file := range files {
		reporter.Update(i+1, file.RelPath)

		req, err := ingest.RequestFromFile(file, technology)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", file.RelPath, err)
			continue
		}

		res, err := svc.Ingest(ctx, req)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", file.RelPath, err)
			continue
		}
		ingested++
		chunks += res.ChunkCount
	}
	reporter.Finish()

	fmt.Printf("Ingested %d document(s), %d chunk(s)", ingested, chunks)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	return nil
}
