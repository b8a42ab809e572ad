package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand writes shell completion scripts for the root command.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for the given shell and write it to stdout.

  $ source <(isometric completion bash)
  $ isometric completion zsh > "${fpath[1]}/_isometric"
  $ isometric completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer c.closeLog()

			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(c.out)
			case "zsh":
				return root.GenZshCompletion(c.out)
			case "fish":
				return root.GenFishCompletion(c.out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(c.out)
			}
			return nil
		},
	}

	return cmd
}
