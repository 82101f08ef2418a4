// Package cmd implements the promptlens command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/promptlens/promptlens/internal/config"
	"github.com/promptlens/promptlens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Loaded by initConfig before any RunE executes.
	cfg *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "promptlens",
	Short: "Conditional vision prompt runner",
	Long: `promptlens runs trees of typed prompts against images through an
OpenAI-compatible vision model endpoint.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/promptlens/promptlens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig loads configuration and initializes the CLI logger.
func initConfig() {
	observability.InitCLILogger("promptlens", verbose)

	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "promptlens: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if verbose {
		observability.CLILogger.Debug("Configuration loaded",
			zap.String("endpoint", cfg.Model.Endpoint),
			zap.String("model", cfg.Model.Model))
	}
}
