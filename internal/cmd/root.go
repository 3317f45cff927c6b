package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/planflat/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for planflat
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planflat",
		Short: "Flatten plan directories into a single dump directory",
		Long: `planflat copies every file of a plan directory into one flat dump
directory. Each file is renamed so its original relative path is encoded
in the name (tasks/01/setup.md becomes tasks-01-setup.md), and name
collisions are resolved deterministically with numeric suffixes.

Configuration is loaded from .planflat/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the error and picks the exit code
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .planflat/config.yaml)")

	cmd.AddCommand(NewDumpCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// loadConfig reads --config, or .planflat/config.yaml in the working
// directory when the flag is not given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
