package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docbase-dev/docbase/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docbase configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure docbase and generates a .docbase.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
