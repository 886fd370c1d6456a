// Package cli implements the storefront command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "TechStore storefront backend",
	Long: `storefront serves the TechStore HTTP API and runs its maintenance tasks.

Configuration comes from .env, an optional storefront.yaml and the environment.
Without DATABASE_URL every store is kept in memory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(newVersionCmd(version))

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "storefront", version)
		},
	}
}
