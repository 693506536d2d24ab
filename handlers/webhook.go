package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"marketplace-svc/fulfillment"
	"marketplace-svc/middleware"
	"marketplace-svc/models"
	"marketplace-svc/payment"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxWebhookBody matches the gateway's documented payload ceiling.
const maxWebhookBody = 65536

type Fulfiller interface {
	ApplyCompletedPayment(ctx context.Context, session payment.Session) (fulfillment.Result, error)
	AbandonSession(ctx context.Context, session payment.Session)
}

type EventLog interface {
	EventSeen(ctx context.Context, eventID string) bool
	MarkEventSeen(ctx context.Context, eventID string)
}

type WebhookHandler struct {
	gateway   payment.Gateway
	fulfiller Fulfiller
	events    EventLog
	logger    *zap.Logger
}

func NewWebhookHandler(gateway payment.Gateway, fulfiller Fulfiller, events EventLog, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		gateway:   gateway,
		fulfiller: fulfiller,
		events:    events,
		logger:    logger,
	}
}

func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "HandleWebhook")
	defer span.End()

	// The signature covers the exact bytes, so the body is read unparsed.
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Webhook body exceeds limit",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.Int64("limit", tooLarge.Limit),
			)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	event, err := h.gateway.VerifyEvent(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("Rejected webhook",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook handler failed"})
		return
	}

	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", event.Type),
	)
	logger := h.logger.With(
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	if h.events != nil && h.events.EventSeen(ctx, event.ID) {
		logger.Info("Webhook event already processed")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	switch event.Type {
	case payment.EventCheckoutCompleted, payment.EventAsyncPaymentSucceeded:
		if event.Session == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook handler failed"})
			return
		}
		_, err := h.fulfiller.ApplyCompletedPayment(ctx, *event.Session)
		if errors.Is(err, models.ErrPaymentIncomplete) {
			// Delayed payment methods complete the session before the
			// funds arrive; the async_payment_succeeded event follows.
			logger.Info("Checkout completed with payment pending", zap.String("session_id", event.Session.ID))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		if err != nil {
			span.RecordError(err)
			logger.Error("Webhook fulfillment failed", zap.String("session_id", event.Session.ID), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook handler failed"})
			return
		}
	case payment.EventCheckoutExpired:
		if event.Session != nil {
			h.fulfiller.AbandonSession(ctx, *event.Session)
		}
	default:
		logger.Debug("Ignoring webhook event type")
	}

	if h.events != nil {
		h.events.MarkEventSeen(ctx, event.ID)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
