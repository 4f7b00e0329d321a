package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/JamesxFarris/Sixxer/internal/server/http/handlers"
	"github.com/JamesxFarris/Sixxer/internal/server/http/middleware"
)

// Telemetry exposes request metrics and the scrape handler.
type Telemetry interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.OperatorFacade, telemetry Telemetry, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.RequestMetrics(telemetry))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	healthHandler := handlers.NewHealthHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)

	engine.GET("/", healthHandler.Root)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/metrics", gin.WrapH(telemetry.Handler()))

	orders := engine.Group("/api/orders")
	orders.Use(middleware.OperatorAuth(facade))
	orders.GET("", orderHandler.List)
	orders.GET("/:ref", orderHandler.Get)
	orders.POST("/:ref/retry", orderHandler.Retry)
	orders.POST("/:ref/cancel", orderHandler.Cancel)
	orders.POST("/:ref/complete", orderHandler.Complete)

	return engine
}
