package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskmcp/taskmcp/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the version of taskmcp",
	Args:    cobra.NoArgs,
	GroupID: string(subCommandGroupAdvanced),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "taskmcp %s\n", version.GetVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
