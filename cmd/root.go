package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docbase",
	Short: "Team knowledge base with hybrid search and cited answers",
	Long: `Docbase stores your team's documentation in a searchable knowledge
base. Retrieval combines keyword and semantic vector search, and
questions are answered from the stored material with citations back
to the source documents. AI agents can query it directly via MCP.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".docbase.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
