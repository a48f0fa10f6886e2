// Package v1 provides the HTTP API router.
package v1

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/infrastructure/http/v1/handlers"
	"craftpos/internal/infrastructure/http/v1/middleware"
	"craftpos/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Sales         *handlers.SalesHandler
	Inventory     *handlers.InventoryHandler
	Catalog       *handlers.CatalogHandler
	Ledger        *handlers.LedgerHandler
	Notifications *handlers.NotificationHandler
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints are unauthenticated for load balancer probes.
	health := router.Group("/health")
	{
		health.GET("/live", cfg.Health.Live)
		health.GET("/ready", cfg.Health.Ready)
		health.GET("/info", cfg.Health.Info)
	}

	api := router.Group("/api/v1")

	public := api.Group("/auth")

	protected := api.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	protected.Use(middleware.Scope())

	cfg.Auth.RegisterRoutes(public, protected.Group("/auth"))
	cfg.Sales.RegisterRoutes(protected.Group("/orders"))
	cfg.Inventory.RegisterRoutes(protected.Group("/inventory"))
	cfg.Catalog.RegisterRoutes(protected.Group("/catalog"))
	cfg.Ledger.RegisterRoutes(protected.Group("/ledger"))
	cfg.Notifications.RegisterRoutes(protected.Group("/notifications"))

	return router
}
