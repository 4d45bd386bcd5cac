package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/graph"
)

// completionCommand creates the completion command. Besides commands and
// flags, the generated scripts complete node ids for --root and --collapse
// from the graph file named on the command line.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: fmt.Sprintf(`Generate a shell completion script for %[1]s.

  bash:       source <(%[1]s completion bash)
  zsh:        %[1]s completion zsh > "${fpath[1]}/_%[1]s"
  fish:       %[1]s completion fish > ~/.config/fish/completions/%[1]s.fish
  powershell: %[1]s completion powershell | Out-String | Invoke-Expression

Node ids are completed with their type, for example:

  %[1]s render forum.json --collapse cat-<TAB>`, appName),
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
		},
	}
}

// completeNodeIDs completes node ids from the graph file in args[0]. Each
// candidate carries the node's type as its description. Ids already given
// to a repeatable flag are still offered.
func completeNodeIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 || args[0] == "-" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	g, err := graph.ReadGraphFile(args[0])
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, n := range g.Nodes {
		if !strings.HasPrefix(n.ID, toComplete) {
			continue
		}
		if n.Type != "" {
			out = append(out, n.ID+"\t"+string(n.Type))
		} else {
			out = append(out, n.ID)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeFormats completes the render formats.
func completeFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{formatSVG + "\tGraphviz layout", formatDOT + "\tGraphviz source"}, cobra.ShellCompDirectiveNoFileComp
}
