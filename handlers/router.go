package handlers

import (
	"marketplace-svc/middleware"
	"marketplace-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type Handlers struct {
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	Verify   *VerifySessionHandler
	Products *ProductHandler
	Auth     *AuthHandler
	Account  *AccountHandler
}

func NewRouter(h Handlers, jwtSecret []byte, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("marketplace-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	api := router.Group("/api")
	{
		api.POST("/checkout", h.Checkout.CreateCheckout)
		api.POST("/webhook", h.Webhook.HandleWebhook)
		api.GET("/verify-session", h.Verify.VerifySession)

		api.POST("/users", h.Auth.Register)
		api.POST("/auth", h.Auth.Login)

		api.GET("/products", h.Products.GetProducts)
		api.GET("/products/:id", h.Products.GetProduct)

		authed := api.Group("", middleware.AuthMiddleware(jwtSecret))
		authed.GET("/profile", h.Account.GetProfile)

		farmer := authed.Group("", middleware.RequireUserType(models.UserTypeFarmer))
		farmer.POST("/products", h.Products.CreateProduct)
		farmer.PUT("/products/:id", h.Products.UpdateProduct)
		farmer.DELETE("/products/:id", h.Products.DeleteProduct)
		farmer.POST("/payout", h.Account.Payout)
	}

	return router
}
