package handlers

import (
	"context"
	"errors"
	"net/http"

	"marketplace-svc/middleware"
	"marketplace-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type AccountStore interface {
	GetUser(ctx context.Context, email string) (models.User, error)
	ListPurchasesByBuyer(ctx context.Context, email string) ([]models.Purchase, error)
	ResetEarning(ctx context.Context, email string) (decimal.Decimal, error)
}

type AccountHandler struct {
	store  AccountStore
	logger *zap.Logger
}

func NewAccountHandler(store AccountStore, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{store: store, logger: logger}
}

// GetProfile returns the caller's account with purchase history.
func (h *AccountHandler) GetProfile(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "GetProfile")
	defer span.End()

	email := middleware.CallerEmail(c)
	user, err := h.store.GetUser(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load user", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	purchases, err := h.store.ListPurchasesByBuyer(ctx, email)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load purchases", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.TotalPrice)
	}

	c.JSON(http.StatusOK, models.Profile{
		Email:      user.Email,
		Type:       user.Type,
		Earning:    user.Earning,
		Purchases:  purchases,
		TotalSpent: total,
	})
}

// Payout zeroes the calling farmer's earning. Money movement to the farmer
// happens outside this service.
func (h *AccountHandler) Payout(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "Payout")
	defer span.End()

	email := middleware.CallerEmail(c)
	amount, err := h.store.ResetEarning(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Payout failed", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payout failed"})
		return
	}

	h.logger.Info("Payout processed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("email", email),
		zap.String("amount", amount.String()),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "amount": amount})
}
