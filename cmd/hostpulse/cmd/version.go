package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HerbHall/hostpulse/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
