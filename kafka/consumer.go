package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-svc/config"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Handler processes one record. The context carries the producer's trace.
type Handler func(ctx context.Context, msg *sarama.ConsumerMessage) error

// InitConsumerGroup joins cfg.NotifyGroup. A group with no committed offset starts
// from the oldest record so emails queued while the relay was down are sent.
func InitConsumerGroup(cfg config.KafkaConfig, logger *zap.Logger) (sarama.ConsumerGroup, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Retry.Backoff = 1 * time.Second
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup([]string{cfg.Broker}, cfg.NotifyGroup, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	logger.Info("Kafka consumer group initialized",
		zap.String("broker", cfg.Broker),
		zap.String("group", cfg.NotifyGroup),
	)
	return group, nil
}

// StartConsumerGroup consumes topic as a member of group until ctx is
// canceled. Each record gets up to maxRetries attempts and its offset is
// committed once handling finishes.
func StartConsumerGroup(ctx context.Context, group sarama.ConsumerGroup, topic string, maxRetries int, handle Handler, logger *zap.Logger) error {
	go func() {
		for err := range group.Errors() {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	handler := &groupHandler{maxRetries: maxRetries, handle: handle, logger: logger}
	logger.Info("Kafka consumer started", zap.String("topic", topic))
	for {
		// Consume returns on every rebalance; rejoin until ctx is done.
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume %s: %w", topic, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

type groupHandler struct {
	maxRetries int
	handle     Handler
	logger     *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			err := handleMessageWithRetry(ctx, msg, h.maxRetries, h.handle, h.logger)
			if ctx.Err() != nil {
				// Left uncommitted so the next member redelivers it.
				return nil
			}
			if err != nil {
				h.logger.Error("Failed to handle message after retries",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
			sess.MarkMessage(msg, "")
		}
	}
}

func handleMessageWithRetry(ctx context.Context, msg *sarama.ConsumerMessage, maxRetries int, handle Handler, logger *zap.Logger) error {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, consumerHeaderCarrier(msg.Headers))

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := handle(msgCtx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// consumerHeaderCarrier adapts incoming record headers to propagation.TextMapCarrier.
type consumerHeaderCarrier []*sarama.RecordHeader

func (c consumerHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c consumerHeaderCarrier) Set(key, value string) {}

func (c consumerHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
