package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gsignin",
		Long:  `All software has versions. This is gsignin's.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gsignin version %s\n", GetVersion())
		},
	}
}

// GetVersion returns the version set on the root command, or "dev" when no
// version was injected at build time.
func GetVersion() string {
	if rootCmd.Version == "" {
		return "dev"
	}
	return rootCmd.Version
}
