package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:       "list <tools|resources|prompts>",
	Short:     "List the tools, resources or prompts the adapter advertises",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"tools", "resources", "prompts"},
	GroupID:   string(subCommandGroupBasic),
	RunE:      runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := newOneShotService(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch args[0] {
	case "tools":
		for _, t := range svc.ListTools() {
			fmt.Fprintf(out, "%s\n    %s\n", t.Name, t.Description)
		}
	case "resources":
		for _, r := range svc.ListResources() {
			fmt.Fprintf(out, "%s (%s)\n    %s\n", r.URIPattern, r.Name, r.Description)
		}
	case "prompts":
		for _, p := range svc.ListPrompts() {
			names := make([]string, 0, len(p.Arguments))
			for _, a := range p.Arguments {
				if a.Required {
					names = append(names, a.Name)
				} else {
					names = append(names, "["+a.Name+"]")
				}
			}
			fmt.Fprintf(out, "%s %s\n    %s\n", p.Name, strings.Join(names, " "), p.Description)
		}
	}
	return nil
}
