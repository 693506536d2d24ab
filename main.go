package main

import (
	"fmt"
	"log"
	"os"

	"marketplace-svc/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	root := &cobra.Command{
		Use:           "marketplace",
		Short:         "Farmer marketplace checkout and fulfillment service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(logger),
		newNotifyCmd(logger),
		newMigrateCmd(logger),
	)

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Info("Configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("notify_mode", cfg.NotifyMode),
		zap.Bool("test_mode", cfg.TestMode),
	)
	return cfg, nil
}
