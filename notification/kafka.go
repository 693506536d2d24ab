package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-svc/kafka"
	"marketplace-svc/middleware"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// KafkaDispatcher queues messages on a topic for the notify worker.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaDispatcher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic, logger: logger}
}

func (d *KafkaDispatcher) Send(ctx context.Context, msg Message) error {
	if err := kafka.Publish(ctx, d.producer, d.topic, msg.To, msg, d.logger); err != nil {
		middleware.RecordNotificationSent(msg.Kind, "failed")
		return err
	}
	middleware.RecordNotificationSent(msg.Kind, "queued")
	return nil
}

// Relay returns a kafka.Handler that delivers queued messages through next.
func Relay(next Dispatcher, logger *zap.Logger) kafka.Handler {
	return func(ctx context.Context, record *sarama.ConsumerMessage) error {
		ctx, span := otel.Tracer("notification-relay").Start(ctx, "RelayNotification")
		defer span.End()

		var msg Message
		if err := json.Unmarshal(record.Value, &msg); err != nil {
			// Undecodable records are dropped, retrying cannot fix them.
			span.RecordError(err)
			logger.Error("Dropping malformed notification",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.Int64("offset", record.Offset),
				zap.Error(err),
			)
			return nil
		}
		if msg.To == "" {
			logger.Error("Dropping notification without recipient", zap.Int64("offset", record.Offset))
			return nil
		}

		span.SetAttributes(
			attribute.String("notification.kind", msg.Kind),
			attribute.String("notification.to", msg.To),
		)
		if err := next.Send(ctx, msg); err != nil {
			span.RecordError(err)
			return fmt.Errorf("relay %s to %s: %w", msg.Kind, msg.To, err)
		}
		return nil
	}
}
