package handlers

import (
	"context"
	"errors"
	"net/http"

	"marketplace-svc/middleware"
	"marketplace-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProductStore interface {
	ListAvailableProducts(ctx context.Context) ([]models.Product, error)
	ListProductsBySeller(ctx context.Context, email string) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, id, email string, req models.UpdateProductRequest) (models.Product, error)
	DeleteProduct(ctx context.Context, id, email string) error
}

type ProductCache interface {
	GetProduct(ctx context.Context, id string) (models.Product, bool)
	SetProduct(ctx context.Context, p models.Product)
	DeleteProduct(ctx context.Context, id string)
}

type ProductHandler struct {
	store  ProductStore
	cache  ProductCache
	logger *zap.Logger
}

func NewProductHandler(store ProductStore, cache ProductCache, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// GetProducts lists the marketplace, or one farmer's products when
// ?email= is given.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	var (
		products []models.Product
		err      error
	)
	if email := c.Query("email"); email != "" {
		span.SetAttributes(attribute.String("seller.email", email))
		products, err = h.store.ListProductsBySeller(ctx, email)
	} else {
		products, err = h.store.ListAvailableProducts(ctx)
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch products", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	if product, ok := h.cache.GetProduct(ctx, id); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.JSON(http.StatusOK, product)
		return
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	product, err := h.store.GetProduct(ctx, id)
	if errors.Is(err, models.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch product",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("product_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.cache.SetProduct(ctx, product)
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "CreateProduct")
	defer span.End()

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be greater than zero"})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	product, err := h.store.CreateProduct(ctx, models.Product{
		ID:       req.ID,
		Name:     req.Name,
		Quantity: req.Quantity,
		Price:    req.Price,
		Email:    middleware.CallerEmail(c),
	})
	if errors.Is(err, models.ErrValidation) {
		c.JSON(http.StatusConflict, gin.H{"error": "Product already exists"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create product", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.Info("Product created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("product_id", product.ID),
		zap.String("seller_email", product.Email),
	)
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "UpdateProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be greater than zero"})
		return
	}

	product, err := h.store.UpdateProduct(ctx, id, middleware.CallerEmail(c), req)
	if errors.Is(err, models.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to update product",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("product_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.cache.DeleteProduct(ctx, id)
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-service").Start(c.Request.Context(), "DeleteProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	err := h.store.DeleteProduct(ctx, id, middleware.CallerEmail(c))
	if errors.Is(err, models.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to delete product",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("product_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.cache.DeleteProduct(ctx, id)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
