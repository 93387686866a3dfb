package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:     "usage <name>",
	Short:   "Get usage information for a tool or a prompt",
	Args:    cobra.ExactArgs(1),
	GroupID: string(subCommandGroupBasic),
	RunE:    runGetUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runGetUsage(cmd *cobra.Command, args []string) error {
	svc, err := newOneShotService(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if p, perr := svc.GetPrompt(args[0]); perr == nil {
		fmt.Fprintln(out, p.Name)
		fmt.Fprintln(out, p.Description)
		if len(p.Arguments) == 0 {
			fmt.Fprintln(out, "This prompt does not take any arguments.")
			return nil
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Arguments:")
		for _, a := range p.Arguments {
			requiredOrOptional := "optional"
			if a.Required {
				requiredOrOptional = "required"
			}
			fmt.Fprintf(out, "* %s (%s): %s\n", a.Name, requiredOrOptional, a.Description)
		}
		return nil
	}

	t, err := svc.GetTool(args[0])
	if err != nil {
		return fmt.Errorf("no tool or prompt named '%s'", args[0])
	}

	fmt.Fprintln(out, t.Name)
	fmt.Fprintln(out, t.Description)

	if len(t.InputSchema.Properties) == 0 {
		fmt.Fprintln(out, "This tool does not require any input parameters.")
		return nil
	}

	keys := make([]string, 0, len(t.InputSchema.Properties))
	for k := range t.InputSchema.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Input Parameters:")
	for _, k := range keys {
		requiredOrOptional := "optional"
		if slices.Contains(t.InputSchema.Required, k) {
			requiredOrOptional = "required"
		}

		boundary := strings.Repeat("=", len(k)+len(requiredOrOptional)+20)

		fmt.Fprintln(out, boundary)
		fmt.Fprintf(out, "%s (%s)\n", k, requiredOrOptional)

		j, err := json.MarshalIndent(t.InputSchema.Properties[k], "", "  ")
		if err != nil {
			// Simply print the raw object if we fail to marshal it
			fmt.Fprintln(out, t.InputSchema.Properties[k])
		} else {
			fmt.Fprintln(out, string(j))
		}
		fmt.Fprintln(out, boundary)
		fmt.Fprintln(out)
	}
	return nil
}
