package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/streambill/streambill/internal/api/v1"
	"github.com/streambill/streambill/internal/config"
	"github.com/streambill/streambill/internal/rest/middleware"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Order   *v1.OrderHandler
	Service *v1.ServiceHandler
	Catalog *v1.CatalogHandler
	Sync    *v1.SyncHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.SentryMiddleware(cfg))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	orders := router.Group("/orders")
	{
		orders.POST("", handlers.Order.CreateOrder)
		orders.GET("", handlers.Order.ListOrders)
		orders.GET("/:id", handlers.Order.GetOrder)
		orders.POST("/:id/cancel", handlers.Order.CancelOrder)
		orders.POST("/:id/mark-paid", handlers.Order.MarkPaid)
		orders.POST("/:id/provision", handlers.Order.Reprovision)
	}

	services := router.Group("/services")
	{
		services.GET("", handlers.Service.ListServices)
		services.GET("/:id", handlers.Service.GetService)
		services.GET("/:id/history", handlers.Service.ServiceHistory)
		services.POST("/:id/suspend", handlers.Service.SuspendService)
		services.POST("/:id/activate", handlers.Service.ActivateService)
		services.POST("/:id/cancel", handlers.Service.CancelService)
		services.POST("/:id/refund", handlers.Service.RefundService)
		services.POST("/:id/extend", handlers.Service.ExtendService)
	}

	products := router.Group("/products")
	{
		products.POST("", handlers.Catalog.CreateProduct)
		products.GET("", handlers.Catalog.ListProducts)
		products.GET("/:id", handlers.Catalog.GetProduct)
		products.PUT("/:id", handlers.Catalog.UpdateProduct)
		products.DELETE("/:id", handlers.Catalog.DeleteProduct)
	}

	panels := router.Group("/panels")
	{
		panels.GET("/:family/packages", handlers.Catalog.PanelPackages)
	}

	sync := router.Group("/sync")
	{
		sync.POST("", handlers.Sync.TriggerSync)
		sync.GET("/imported-users", handlers.Sync.ListImportedUsers)
	}

	lifecycle := router.Group("/lifecycle")
	{
		lifecycle.POST("/sweeps", handlers.Sync.RunSweeps)
	}
}
