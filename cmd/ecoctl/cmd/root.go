package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ecoctl",
	Short: "Eco-H2O operations tool",
	Long: `ecoctl is the command-line companion to the Eco-H2O portal.

Available commands:
  serve      Run the portal HTTP server
  catalog    Print the published product and plan rates

Use "ecoctl [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
