package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

// AppVersion is shown in the control panel
const AppVersion = "2.0.0"

var configPath string

// rootCmd runs the automation when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "linkedin-connect",
	Short: "Send connection invitations from a people-search results page",
	Long: `linkedin-connect opens a people-search results page in Chrome, mounts a
control panel on it and, once started, invites every listed profile until the
connection limit, the last page or the weekly invitation limit ends the run.

Configuration is read from config/config.yaml (or CONFIG_PATH); see
config/config.example.yaml.`,
	SilenceUsage: true,
	RunE:         runConnect,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CONFIG_PATH or "+config.DefaultPath+")")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.UserMessage())
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file, initializes logging and normalizes the
// connect block
func loadConfig() (*config.Config, config.RunConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.RunConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, config.RunConfig{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	runCfg, err := cfg.Run()
	if err != nil {
		return cfg, config.RunConfig{}, err
	}
	return cfg, runCfg, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
