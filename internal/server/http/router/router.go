package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/tvoloshin/orderdesk/internal/server/http/handlers"
	"github.com/tvoloshin/orderdesk/internal/server/http/middleware"
)

// Setup configures the gin router with handlers and middleware.
func Setup(facade handlers.OrderFacade, feed handlers.OrderFeed, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade)
	dashboardHandler := handlers.NewDashboardHandler(feed)

	api := engine.Group("/api")

	orders := api.Group("/orders")
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/:id", orderHandler.Get)
	orders.PUT("/:id", orderHandler.Update)
	orders.DELETE("/:id", orderHandler.Delete)
	orders.POST("/:id/ready", orderHandler.MarkReady)
	orders.POST("/:id/deliver", orderHandler.MarkDelivered)
	orders.POST("/:id/cancel", orderHandler.Cancel)

	dashboard := api.Group("/dashboard")
	dashboard.GET("", dashboardHandler.Stats)
	dashboard.GET("/stream", dashboardHandler.Stream)

	return engine
}
