package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/display"
)

// configCommand creates the config command, which prints the effective
// display configuration.
func (c *CLI) configCommand() *cobra.Command {
	var (
		path     string
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective display configuration as TOML",
		Long: `Print the display configuration used by render and serve.

Without --config, display.toml in the config directory is used when present
(~/.config/forumgraph/display.toml, or $XDG_CONFIG_HOME/forumgraph). The
output is a complete file that can be edited and passed back with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := display.Default()
			source := "defaults"
			if !defaults {
				var (
					p   string
					err error
				)
				if cfg, p, err = loadDisplay(path); err != nil {
					return err
				}
				if p != "" {
					source = p
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# source: %s\n", source)
			return toml.NewEncoder(w).Encode(cfg)
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "display config file (TOML)")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults")

	return cmd
}
