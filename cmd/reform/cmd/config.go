package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage reform configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file.

Without --project the file goes to ~/.config/reform/config.yaml; with
--project it goes to ./.reform.yaml.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Print the effective configuration with agent tokens redacted.",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitForce   bool
	configInitProject bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitProject, "project", false, "write ./.reform.yaml instead of the user config")
}

func configInitPath(project bool) (string, error) {
	if project {
		return ".reform.yaml", nil
	}
	dir, err := config.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := configInitPath(configInitProject)
	if err != nil {
		return err
	}
	if err := config.InitFile(path, configInitForce); err != nil {
		if !configInitForce {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Wrote", path)
	fmt.Fprintln(out, "Run 'reform doctor' to verify setup")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	_, loader, err := loadConfig()
	if err != nil {
		return err
	}

	settings := loader.Viper().AllSettings()
	if agents, ok := settings["agents"].(map[string]interface{}); ok {
		for _, v := range agents {
			if agent, ok := v.(map[string]interface{}); ok {
				if token, _ := agent["token"].(string); token != "" {
					agent["token"] = "[REDACTED]"
				}
			}
		}
	}

	out := cmd.OutOrStdout()
	if f := loader.ConfigFile(); f != "" {
		fmt.Fprintf(out, "# config file: %s\n", f)
	}
	for _, f := range loader.DotenvFiles() {
		fmt.Fprintf(out, "# env file: %s\n", f)
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
