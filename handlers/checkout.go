package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace-svc/checkout"
	"marketplace-svc/middleware"
	"marketplace-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type SessionCreator interface {
	CreateSession(ctx context.Context, req checkout.Request) (string, error)
}

type CheckoutHandler struct {
	checkout      SessionCreator
	defaultOrigin string
	logger        *zap.Logger
}

func NewCheckoutHandler(checkout SessionCreator, defaultOrigin string, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:      checkout,
		defaultOrigin: strings.TrimRight(defaultOrigin, "/"),
		logger:        logger,
	}
}

func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "CreateCheckout")
	defer span.End()

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	)

	url, err := h.checkout.CreateSession(ctx, checkout.Request{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Origin:    h.origin(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation),
			errors.Is(err, models.ErrProductNotFound),
			errors.Is(err, models.ErrInsufficientStock),
			errors.Is(err, models.ErrPriceMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			span.RecordError(err)
			h.logger.Error("Failed to create checkout session",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.String("product_id", req.ProductID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating checkout session"})
		}
		return
	}

	c.JSON(http.StatusOK, models.CheckoutResponse{URL: url})
}

// origin prefers the browser's Origin header so redirects land on the
// storefront the buyer came from.
func (h *CheckoutHandler) origin(c *gin.Context) string {
	if o := strings.TrimRight(c.GetHeader("Origin"), "/"); o != "" {
		return o
	}
	return h.defaultOrigin
}
