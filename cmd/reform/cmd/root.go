package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	noColor    bool
	outputFlag string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("failure already reported")

var rootCmd = &cobra.Command{
	Use:   "reform",
	Short: "Reformat text with AI coding agent CLIs",
	Long: `reform rewrites text through a local AI agent CLI (claude, codex,
gemini, cursor, opencode) using a template and a tone, then lets you ask
follow-up questions in the same agent conversation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any unreported error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./.reform.yaml or ~/.config/reform/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "",
		"output mode (tui, plain, json); detected from the terminal by default")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}
