// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flashdl/internal/config"
	"flashdl/internal/log"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig    string
	flagDebug     bool
	flagLogFormat string
	flagTempDir   string
	flagCookies   string
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "flashdl",
	Short: "Resolve media URLs and deliver their files",
	Long: `flashdl turns a video, image or post URL into a menu of downloadable
options and relays the chosen file, merging HD video with audio when needed.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/flashdl/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: auto | json | console")
	rootCmd.PersistentFlags().StringVar(&flagTempDir, "temp-dir", "", "Directory for merge work files")
	rootCmd.PersistentFlags().StringVar(&flagCookies, "cookies", "", "Cookie jar passed to yt-dlp")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig, true)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagDebug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagTempDir != "" {
		cfg.TempDir = flagTempDir
	}
	if flagCookies != "" {
		cfg.CookieFile = flagCookies
	}
	applyServeFlags(cfg)

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Configure(log.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// Printing the version needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flashdl %s\n", Version)
	},
}
