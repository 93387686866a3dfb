package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskmcp/taskmcp/pkg/types"
)

var readCmdFilters map[string]string

var readCmd = &cobra.Command{
	Use:   "read <uri>",
	Short: "Read a resource once and print its JSON document",
	Example: `  taskmcp read task://pending
  taskmcp read task://list --filter priority=high --filter limit=5
  taskmcp read task://get/3`,
	Args:    cobra.ExactArgs(1),
	GroupID: string(subCommandGroupBasic),
	RunE:    runReadResource,
}

func init() {
	readCmd.Flags().StringToStringVar(&readCmdFilters, "filter", nil, "extra query filter for list resources, eg- --filter priority=high")
	rootCmd.AddCommand(readCmd)
}

func runReadResource(cmd *cobra.Command, args []string) error {
	filters, err := resourceFilters(readCmdFilters)
	if err != nil {
		return err
	}
	svc, err := newOneShotService(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.ReadResource(cmd.Context(), args[0], filters))
	return nil
}

// resourceFilters converts the --filter flags into query filters.
// Status and priority values are checked here so a typo fails before the backend is called.
func resourceFilters(flags map[string]string) (map[string]any, error) {
	filters := make(map[string]any, len(flags))
	for k, v := range flags {
		var err error
		switch k {
		case "status":
			_, err = types.ValidateTaskStatus(v)
		case "priority":
			_, err = types.ValidateTaskPriority(v)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid --filter %s: %w", k, err)
		}
		filters[k] = v
	}
	return filters, nil
}
