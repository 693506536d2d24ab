package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"marketplace-svc/config"
	"marketplace-svc/kafka"
	"marketplace-svc/middleware"
	"marketplace-svc/notification"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newNotifyCmd(logger *zap.Logger) *cobra.Command {
	var retries int
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Relay queued order emails from Kafka to SMTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}
			return relay(cmd.Context(), cfg, retries, logger)
		},
	}
	cmd.Flags().IntVar(&retries, "retries", 3, "delivery attempts per message")
	return cmd
}

func relay(ctx context.Context, cfg *config.Config, retries int, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := middleware.InitTracing("marketplace-notify", cfg.JaegerEndpoint, logger)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer shutdown()

	// The relay delivers for real; without SMTP settings it logs instead.
	var sender notification.Dispatcher = notification.NewLogDispatcher(logger)
	if cfg.SMTP.Host != "" {
		smtp, err := notification.NewSMTPDispatcher(cfg.SMTP, logger)
		if err != nil {
			return err
		}
		sender = smtp
	}

	group, err := kafka.InitConsumerGroup(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer group.Close()

	err = kafka.StartConsumerGroup(ctx, group, cfg.Kafka.NotifyTopic, retries, notification.Relay(sender, logger), logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("Notification relay stopped")
		return nil
	}
	return err
}
