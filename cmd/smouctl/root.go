package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msanchezt/smou-parking-ha/internal/app"
	"github.com/msanchezt/smou-parking-ha/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "smouctl",
	Short: "Inspect and feed the SMOU parking session log",
	Long: `smouctl ingests scraper exports into the parking session log and
reports what the sessions cost against the regular tariff.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides SMOU_CONFIG)")
}

func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		if err := os.Setenv("SMOU_CONFIG", cfgFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openApp loads the configuration and opens the record log.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg)
}
