package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foliohq/shelf/pkg/cliui"
	"github.com/foliohq/shelf/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key grouped by TOML section, with its
current value from the config.toml file stored in the .shelf/
directory. Keys without a stored value show their default.

Examples:
  shelf config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd, configDir)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "\n  %s %s\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(out, "\n  %s\n", cliui.DimStyle.Render("No config file found. Showing defaults."))
	}

	section := ""
	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		// Keys are ordered section by section; emit a header when the
		// section prefix changes.
		prefix, name, _ := strings.Cut(key, ".")
		if prefix != section {
			section = prefix
			fmt.Fprintf(out, "\n  %s\n", cliui.TitleStyle.Render("["+section+"]"))
		}

		rendered := cliui.ValueStyle.Render(value)
		if value == "" {
			rendered = cliui.DimStyle.Render("<not set>")
		}
		fmt.Fprintf(out, "    %s = %s\n", cliui.KeyStyle.Render(name), rendered)
	}
	fmt.Fprintln(out)

	return nil
}
