package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var renderCmdArgs map[string]string

var renderCmd = &cobra.Command{
	Use:     "render <prompt>",
	Short:   "Render a prompt template and print its messages",
	Example: `  taskmcp render sprint_planning --arg sprint_duration=14 --arg team_capacity=40`,
	Args:    cobra.ExactArgs(1),
	GroupID: string(subCommandGroupBasic),
	RunE:    runRenderPrompt,
}

func init() {
	renderCmd.Flags().StringToStringVar(&renderCmdArgs, "arg", nil, "prompt argument, eg- --arg sprint_duration=14")
	rootCmd.AddCommand(renderCmd)
}

func runRenderPrompt(cmd *cobra.Command, args []string) error {
	svc, err := newOneShotService(cmd)
	if err != nil {
		return err
	}

	p, err := svc.RenderPrompt(args[0], renderCmdArgs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range p.Messages {
		fmt.Fprintf(out, "[%s]\n%s\n", m.Role, m.Text)
	}
	return nil
}
