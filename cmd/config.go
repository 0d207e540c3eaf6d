package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/config"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg", "settings"},
	Short:   "Inspect configuration",
	Long: `Inspect the configuration chime runs with. Values come from the
defaults, then the config file, then CHIME_* environment variables.

Examples:
  chime config show
  chime config path
  CHIME_TIMEZONE=Africa/Cairo chime config show`,
}

// configShowCmd prints the effective configuration.
var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective configuration as YAML",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runConfigShow,
}

// configPathCmd prints the config file location.
var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(ctx.Config)
	}
	data, err := ctx.Config.Marshal()
	if err != nil {
		return err
	}
	ctx.Formatter.Print(string(data))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{"path": path})
	}
	ctx.Formatter.Println(path)
	return nil
}
