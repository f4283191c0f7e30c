package cmd

import (
	"fmt"
	"github.com/spf13/cobra"
	"maps"
	"io"
	"slices"
)

// completionGenerators maps the supported shells to the cobra generator of their completion script.
var completionGenerators = map[string]func(cmd *cobra.Command, w io.Writer) error{
	"bash": func(cmd *cobra.Command, w io.Writer) error { return cmd.Root().GenBashCompletionV2(w, true) },
	"zsh":  func(cmd *cobra.Command, w io.Writer) error { return cmd.Root().GenZshCompletion(w) },
	"fish": func(cmd *cobra.Command, w io.Writer) error { return cmd.Root().GenFishCompletion(w, true) },
	"powershell": func(cmd *cobra.Command, w io.Writer) error {
		return cmd.Root().GenPowerShellCompletionWithDesc(w)
	},
}

// completionShells returns the supported shells, sorted.
func completionShells() []string {
	return slices.Sorted(maps.Keys(completionGenerators))
}

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:       "completion <shell>",
	Short:     "Generate the shell completion script for the specified shell",
	ValidArgs: completionShells(),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Long: `To load completions in the current bash session:

  $ source <(symheap completion bash)

To load completions for each session, write the script to your shell's completion directory, e.g.:

  $ symheap completion bash > /etc/bash_completion.d/symheap
  $ symheap completion zsh > "${fpath[1]}/_symheap"
  $ symheap completion fish > ~/.config/fish/completions/symheap.fish`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := completionGenerators[args[0]](cmd, cmd.OutOrStdout()); err != nil {
			err = fmt.Errorf("unable to generate the %s completion script: %w", args[0], err)
			cmdLogger.Error("Failed to run the completion command", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
