package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victoMR/testFlow/internal/version"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v, commit, date := version.Info()
		fmt.Fprintf(cmd.OutOrStdout(), "testflow %s (commit: %s, built: %s)\n", v, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
