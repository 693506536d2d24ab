package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-svc/cache"
	"marketplace-svc/checkout"
	"marketplace-svc/config"
	"marketplace-svc/database"
	"marketplace-svc/fulfillment"
	"marketplace-svc/handlers"
	"marketplace-svc/kafka"
	"marketplace-svc/middleware"
	"marketplace-svc/notification"
	"marketplace-svc/payment"
	"marketplace-svc/store"

	"github.com/IBM/sarama"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}
			if err := cfg.RequireStripe(); err != nil {
				return err
			}
			if err := cfg.RequireJWT(); err != nil {
				return err
			}
			return serve(cfg, logger)
		},
	}
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	// Initialize database
	db, err := database.InitDB(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, logger); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	// Redis is optional: without it the product cache and event dedupe are skipped.
	var productCache *cache.Cache
	if rdb, err := cache.InitRedis(cfg.Redis, logger); err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
	} else {
		defer rdb.Close()
		productCache = cache.New(rdb, logger)
	}

	var producer sarama.SyncProducer
	if cfg.NotifyMode == config.NotifyModeKafka {
		producer, err = kafka.InitProducer(cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("initialize Kafka producer: %w", err)
		}
		defer producer.Close()
	}

	dispatcher, err := notification.NewDispatcher(cfg, producer, logger)
	if err != nil {
		return fmt.Errorf("initialize notifications: %w", err)
	}

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("marketplace-service", cfg.JaegerEndpoint, logger)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer shutdown()

	st := store.New(db)
	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		WebhookSecret:     cfg.StripeWebhookSecret,
		Currency:          cfg.Currency,
		Timeout:           cfg.GatewayTimeout,
		APIURL:            cfg.StripeAPIURL,
		MaxNetworkRetries: 2,
	}, logger)
	processor := fulfillment.NewProcessor(st, dispatcher, productCache, logger)

	jwtSecret := []byte(cfg.JWTSecret)
	router := handlers.NewRouter(handlers.Handlers{
		Checkout: handlers.NewCheckoutHandler(checkout.NewService(st, gateway, logger), cfg.AppOrigin, logger),
		Webhook:  handlers.NewWebhookHandler(gateway, processor, productCache, logger),
		Verify:   handlers.NewVerifySessionHandler(gateway, processor, cfg.TestMode, logger),
		Products: handlers.NewProductHandler(st, productCache, logger),
		Auth:     handlers.NewAuthHandler(st, jwtSecret, logger),
		Account:  handlers.NewAccountHandler(st, logger),
	}, jwtSecret, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("Marketplace service started", zap.String("addr", srv.Addr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("REST server: %w", err)
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
	return nil
}
