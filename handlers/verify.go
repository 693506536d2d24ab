package handlers

import (
	"errors"
	"net/http"

	"marketplace-svc/middleware"
	"marketplace-svc/models"
	"marketplace-svc/payment"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// VerifySessionHandler pulls a session from the gateway and fulfils it.
// It stands in for webhooks when the gateway cannot reach the service, so
// it answers 403 unless test mode is on.
type VerifySessionHandler struct {
	gateway   payment.Gateway
	fulfiller Fulfiller
	testMode  bool
	logger    *zap.Logger
}

func NewVerifySessionHandler(gateway payment.Gateway, fulfiller Fulfiller, testMode bool, logger *zap.Logger) *VerifySessionHandler {
	return &VerifySessionHandler{
		gateway:   gateway,
		fulfiller: fulfiller,
		testMode:  testMode,
		logger:    logger,
	}
}

func (h *VerifySessionHandler) VerifySession(c *gin.Context) {
	if !h.testMode {
		c.JSON(http.StatusForbidden, gin.H{"error": "This endpoint is only available in TEST_MODE"})
		return
	}

	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "VerifySession")
	defer span.End()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	session, err := h.gateway.RetrieveSession(ctx, sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown session"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to retrieve checkout session",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment session"})
		return
	}

	if session.Status != payment.SessionStatusComplete {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment not completed"})
		return
	}

	if _, err := h.fulfiller.ApplyCompletedPayment(ctx, session); err != nil {
		if errors.Is(err, models.ErrPaymentIncomplete) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment not completed"})
			return
		}
		span.RecordError(err)
		if errors.Is(err, models.ErrValidation) ||
			errors.Is(err, models.ErrProductNotFound) ||
			errors.Is(err, models.ErrSellerNotFound) {
			h.logger.Warn("Session cannot be fulfilled",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment session"})
			return
		}
		h.logger.Error("Session verification failed",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
