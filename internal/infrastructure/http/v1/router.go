// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/security"
	"bakehouse/internal/infrastructure/http/v1/dto"
	"bakehouse/internal/infrastructure/http/v1/handlers"
	"bakehouse/internal/infrastructure/http/v1/middleware"
	"bakehouse/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Services behind the API
	Services *Services

	// Health serves /health/*
	Health *handlers.HealthHandler

	// Idempotency enables X-Idempotency-Key handling when set
	Idempotency middleware.IdempotencyStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	dto.RegisterValidators()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	// Health endpoints (no auth)
	if cfg.Health != nil {
		health := router.Group("/health")
		{
			health.GET("/live", cfg.Health.Live)
			health.GET("/ready", cfg.Health.Ready)
			health.GET("/info", cfg.Health.Info)
		}
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	v1.Use(middleware.UserContext())
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	svc := cfg.Services

	registerStockRoutes(v1, handlers.NewStockHandler(base, svc.Stock), handlers.NewTransferHandler(base, svc.Transfers))
	registerGroceryRoutes(v1, handlers.NewGroceryHandler(base, svc.Grocery))
	registerMachineRoutes(v1, handlers.NewMachineHandler(base, svc.Machine))
	registerCatalogRoutes(v1, handlers.NewItemHandler(base, svc.Items), handlers.NewBranchHandler(base, svc.Branches))
	registerReportRoutes(v1, handlers.NewReportsHandler(base, svc.Reports))
	v1.GET("/activity", middleware.RequirePermission(security.PermActivityRead), handlers.NewActivityHandler(base, svc.Activity).List)

	return router
}

// registerStockRoutes registers the discrete ledger endpoints.
func registerStockRoutes(rg *gin.RouterGroup, h *handlers.StockHandler, transfers *handlers.TransferHandler) {
	read := middleware.RequirePermission(security.PermStockRead)
	write := middleware.RequirePermission(security.PermStockWrite)

	g := rg.Group("/stocks")
	g.GET("", read, h.GetStocks)
	g.POST("/update", write, h.Update)
	g.POST("/update-returns", write, h.UpdateReturns)
	g.POST("/finish-batch", middleware.RequirePermission(security.PermStockFinish), h.FinishBatch)
	g.GET("/batch-status", read, h.GetBatchStatus)
	g.POST("/transfer", write, h.Transfer)
	g.GET("/transfers", read, transfers.List)
}

// registerGroceryRoutes registers the batch-expiry ledger endpoints.
func registerGroceryRoutes(rg *gin.RouterGroup, h *handlers.GroceryHandler) {
	read := middleware.RequirePermission(security.PermGroceryRead)
	write := middleware.RequirePermission(security.PermGroceryWrite)

	g := rg.Group("/grocery")
	g.POST("/stocks", write, h.AddBatch)
	g.GET("/stocks", read, h.ListBatches)
	g.GET("/stocks/available", read, h.GetAvailable)
	g.PUT("/stocks/remaining", write, h.UpdateRemaining)
	g.POST("/returns", write, h.RecordReturn)
	g.GET("/returns", read, h.ListReturns)
	g.GET("/sales", read, h.ListSales)
	g.POST("/finish-batch", middleware.RequirePermission(security.PermGroceryFinish), h.FinishBatch)
	g.GET("/batch-status", read, h.GetBatchStatus)
	g.POST("/transfer", write, h.Transfer)
}

// registerMachineRoutes registers machine batch endpoints.
func registerMachineRoutes(rg *gin.RouterGroup, h *handlers.MachineHandler) {
	write := middleware.RequirePermission(security.PermMachineWrite)

	g := rg.Group("/machines/batches")
	g.POST("/start", write, h.Start)
	g.POST("/:batchId/finish", write, h.Finish)
	g.GET("", middleware.RequirePermission(security.PermMachineRead), h.List)
}

// registerCatalogRoutes registers item and branch catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, items *handlers.ItemHandler, branches *handlers.BranchHandler) {
	read := middleware.RequirePermission(security.PermCatalogRead)
	write := middleware.RequirePermission(security.PermCatalogWrite)

	ig := rg.Group("/items")
	ig.GET("", read, items.List)
	ig.POST("", write, items.Create)
	ig.GET("/:code", read, items.Get)
	ig.PUT("/:code", write, items.Update)
	ig.DELETE("/:code", write, items.Delete)

	bg := rg.Group("/branches")
	bg.GET("", read, branches.List)
	bg.POST("", write, branches.Create)
	bg.GET("/:code", read, branches.Get)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, h *handlers.ReportsHandler) {
	read := middleware.RequirePermission(security.PermReportRead)

	g := rg.Group("/reports")
	g.GET("/daily-summary", read, h.GetDailySummary)
	g.GET("/expiring-batches", read, h.GetExpiringBatches)
}
