package checkout

import (
	"context"
	"errors"
	"fmt"

	"marketplace-svc/middleware"
	"marketplace-svc/models"
	"marketplace-svc/payment"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProductReader interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
}

type Request struct {
	ProductID string
	Quantity  int
	// UnitPrice is what the client displayed. Optional; when present it must
	// match the stored price.
	UnitPrice *decimal.Decimal
	Origin    string
}

type Service struct {
	products ProductReader
	gateway  payment.Gateway
	logger   *zap.Logger
}

func NewService(products ProductReader, gateway payment.Gateway, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreateSession checks the order against current stock and opens a hosted
// checkout session for it, returning the redirect URL.
func (s *Service) CreateSession(ctx context.Context, req Request) (string, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "CreateSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	)

	url, err := s.createSession(ctx, req)
	switch {
	case err == nil:
		middleware.RecordCheckoutSession("created")
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrPriceMismatch):
		middleware.RecordCheckoutSession("rejected")
		s.logger.Info("Checkout rejected",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("product_id", req.ProductID),
			zap.Int("quantity", req.Quantity),
			zap.Error(err),
		)
	default:
		middleware.RecordCheckoutSession("failed")
		span.RecordError(err)
	}
	return url, err
}

func (s *Service) createSession(ctx context.Context, req Request) (string, error) {
	if req.ProductID == "" {
		return "", fmt.Errorf("%w: productId is required", models.ErrValidation)
	}
	if req.Quantity <= 0 {
		return "", fmt.Errorf("%w: quantity must be positive, got %d", models.ErrValidation, req.Quantity)
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return "", err
	}

	if req.Quantity > product.Quantity {
		return "", fmt.Errorf("%w: requested %d of %s, %d available",
			models.ErrInsufficientStock, req.Quantity, product.ID, product.Quantity)
	}
	if req.UnitPrice != nil && !req.UnitPrice.Equal(product.Price) {
		return "", fmt.Errorf("%w: got %s, listed at %s", models.ErrPriceMismatch, req.UnitPrice, product.Price)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		ProductID:   product.ID,
		ProductName: product.Name,
		SellerID:    product.Email,
		Quantity:    req.Quantity,
		UnitPrice:   product.Price,
		Origin:      req.Origin,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("Checkout session created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("session_id", session.ID),
		zap.String("product_id", product.ID),
		zap.Int("quantity", req.Quantity),
	)
	return session.URL, nil
}
