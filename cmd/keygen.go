package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskmcp/taskmcp/internal"
	"github.com/taskmcp/taskmcp/internal/config"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an API key for the http gateway",
	Long: fmt.Sprintf(
		"Generate a random API key. Set it in %s (or %s_FILE) when serving over http,\n"+
			"and have clients send it as 'Authorization: Bearer <key>'.",
		config.APIKeyEnvVar, config.APIKeyEnvVar,
	),
	Args:    cobra.NoArgs,
	GroupID: string(subCommandGroupAdvanced),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := internal.GenerateAPIKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
