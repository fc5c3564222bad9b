package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentineldb/internal/config"
	"sentineldb/internal/logging"
)

var version = "1.0.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "sentineldb",
	Short:         "Database health monitor with z-score anomaly alerts",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("SENTINEL_CONFIG"), "path to YAML config file (or set SENTINEL_CONFIG)")
	rootCmd.AddCommand(runCmd, verifyCmd, stressCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger shared by
// every subcommand.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}
