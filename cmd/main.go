package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"inventory-service/internal/handler"
	"inventory-service/internal/ledger"
	mid "inventory-service/internal/middleware"
	"inventory-service/pkg/config"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"
)

func main() {
	// Load configuration (reads .env when present)
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting inventory-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Wire the stock ledger into the handlers
	handler.Init(ledger.New(database.GetDB()))

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Product API routes
	productAPI := e.Group("/api/products")
	productAPI.GET("", handler.ListProducts)
	productAPI.GET("/low-stock", handler.ListLowStockProducts)
	productAPI.GET("/:id", handler.GetProduct)
	productAPI.POST("", handler.CreateProduct)
	productAPI.PUT("/:id", handler.UpdateProduct)
	productAPI.DELETE("/:id", handler.DeleteProduct)
	productAPI.POST("/:id/adjust-stock", handler.AdjustStock)
	productAPI.GET("/:id/transactions", handler.ListProductTransactions)

	// Category API routes
	categoryAPI := e.Group("/api/categories")
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.GET("/:id", handler.GetCategory)
	categoryAPI.POST("", handler.CreateCategory)
	categoryAPI.PUT("/:id", handler.UpdateCategory)
	categoryAPI.DELETE("/:id", handler.DeleteCategory)

	// Supplier API routes
	supplierAPI := e.Group("/api/suppliers")
	supplierAPI.GET("", handler.ListSuppliers)
	supplierAPI.GET("/:id", handler.GetSupplier)
	supplierAPI.POST("", handler.CreateSupplier)
	supplierAPI.PUT("/:id", handler.UpdateSupplier)
	supplierAPI.DELETE("/:id", handler.DeleteSupplier)

	// Order API routes
	orderAPI := e.Group("/api/orders")
	orderAPI.GET("", handler.ListOrders)
	orderAPI.GET("/stats", handler.GetOrderStats)
	orderAPI.GET("/:id", handler.GetOrder)
	orderAPI.POST("", handler.CreateOrder)
	orderAPI.PUT("/:id", handler.UpdateOrder)
	orderAPI.PUT("/:id/status", handler.UpdateOrderStatus)
	orderAPI.DELETE("/:id", handler.DeleteOrder)

	// Purchase order API routes
	purchaseAPI := e.Group("/api/purchase-orders")
	purchaseAPI.GET("", handler.ListPurchaseOrders)
	purchaseAPI.GET("/:id", handler.GetPurchaseOrder)
	purchaseAPI.POST("", handler.CreatePurchaseOrder)
	purchaseAPI.PUT("/:id", handler.UpdatePurchaseOrder)
	purchaseAPI.POST("/:id/receive", handler.ReceivePurchaseOrder)
	purchaseAPI.DELETE("/:id", handler.DeletePurchaseOrder)

	// Report API routes
	reportAPI := e.Group("/api/reports")
	reportAPI.GET("/low-inventory", handler.LowInventoryReport)
	reportAPI.GET("/sales-by-category", handler.SalesByCategoryReport)
	reportAPI.GET("/monthly-sales", handler.MonthlySalesReport)
	reportAPI.GET("/inventory-valuation", handler.InventoryValuationReport)
	reportAPI.GET("/top-selling-products", handler.TopSellingProductsReport)
	reportAPI.GET("/product-performance", handler.ProductPerformanceReport)
	reportAPI.GET("/recent-transactions", handler.RecentTransactionsReport)
	reportAPI.GET("/dashboard-stats", handler.DashboardStats)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
