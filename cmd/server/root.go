package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"commission-art-backend/internal/config"
	"commission-art-backend/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "commission-art",
	Short: "Commission art ordering backend",
	Long:  `Serves the commission ordering API backed by Supabase auth, storage and Postgres.`,
	// Bare invocation serves, so existing deploy commands keep working.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")
}

// setup loads configuration and builds the process logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
