package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var invokeCmdInput string

var invokeCmd = &cobra.Command{
	Use:   "invoke <tool>",
	Short: "Invoke a tool once against the backend and print its result",
	Long: "Invoke a tool against the configured backend and print the result envelope as JSON.\n" +
		"The command exits with an error when the envelope reports a failure.",
	Example: `  taskmcp invoke create_task --input '{"title": "Write docs", "priority": "high"}'
  taskmcp invoke bulk_update_tasks --input '{"task_ids": [1, 2], "status": "completed"}'`,
	Args:    cobra.ExactArgs(1),
	GroupID: string(subCommandGroupBasic),
	RunE:    runInvokeTool,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeCmdInput, "input", "{}", "tool arguments as a JSON object")
	rootCmd.AddCommand(invokeCmd)
}

func runInvokeTool(cmd *cobra.Command, args []string) error {
	var input map[string]any
	if err := json.Unmarshal([]byte(invokeCmdInput), &input); err != nil {
		return fmt.Errorf("invalid input, must be a JSON object: %w", err)
	}

	svc, err := newOneShotService(cmd)
	if err != nil {
		return err
	}

	env := svc.InvokeTool(cmd.Context(), args[0], input)
	j, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(j))

	if !env.Success {
		return fmt.Errorf("tool '%s' failed: %s", args[0], env.Error)
	}
	return nil
}
