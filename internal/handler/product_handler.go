package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	SKU          string  `json:"sku"`
	CategoryID   *uint   `json:"category_id"`
	SupplierID   *uint   `json:"supplier_id"`
	UnitPrice    float64 `json:"unit_price"`
	StockLevel   int     `json:"stock_level"`
	ReorderLevel *int    `json:"reorder_level"`
}

// AdjustStockRequest defines the structure for manual stock adjustments
type AdjustStockRequest struct {
	Adjustment *int   `json:"adjustment"`
	Notes      string `json:"notes"`
}

// ListProducts handles retrieving all products with optional filtering
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing products with filters")

	db := database.GetDB()
	var products []model.Product

	query := db

	// Filter by category if specified
	categoryID := c.QueryParam("category_id")
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
		log.Info("Filtering products by category", zap.String("category_id", categoryID))
	}

	// Filter to low-stock products if requested
	lowStock := c.QueryParam("low_stock")
	if lowStock != "" {
		low, err := strconv.ParseBool(lowStock)
		if err == nil && low {
			query = query.Where("stock_level <= reorder_level")
			log.Info("Filtering products by low stock")
		}
	}

	// Free-text search over name, SKU and description
	search := c.QueryParam("search")
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ? OR description LIKE ?", pattern, pattern, pattern)
		log.Info("Searching products", zap.String("search", search))
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("query")(time.Now())

	result := query.Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Getting product by ID", zap.String("product_id", id))

	defer prometheus.TrackDBOperation("query")(time.Now())

	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Error("Product not found",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new product")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing required field: name",
		})
	}
	if req.UnitPrice <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing required field: unit_price",
		})
	}
	if req.StockLevel < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Stock level cannot be negative",
		})
	}

	// Check if product with SKU already exists
	if req.SKU != "" {
		var count int64
		database.GetDB().Model(&model.Product{}).Where("sku = ?", req.SKU).Count(&count)
		if count > 0 {
			log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Product with this SKU already exists",
			})
		}
	}

	reorderLevel := 10
	if req.ReorderLevel != nil {
		reorderLevel = *req.ReorderLevel
	}

	product := model.Product{
		Name:         req.Name,
		Description:  req.Description,
		SKU:          req.SKU,
		CategoryID:   req.CategoryID,
		SupplierID:   req.SupplierID,
		UnitPrice:    req.UnitPrice,
		StockLevel:   req.StockLevel,
		ReorderLevel: reorderLevel,
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&product)
	if result.Error != nil {
		log.Error("Failed to create product",
			zap.String("name", req.Name),
			zap.String("sku", req.SKU),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create product",
		})
	}

	log.Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating an existing product. Stock levels are
// not editable here: stock only moves through the ledger endpoints.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Updating product", zap.String("product_id", id))

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data",
			zap.String("product_id", id),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	// Find existing product
	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Error("Product not found for update",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	// Check if SKU is changed and if new SKU already exists
	if req.SKU != "" && req.SKU != product.SKU {
		var count int64
		database.GetDB().Model(&model.Product{}).Where("sku = ? AND id != ?", req.SKU, id).Count(&count)
		if count > 0 {
			log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Product with this SKU already exists",
			})
		}
		product.SKU = req.SKU
	}

	// Update fields
	if req.Name != "" {
		product.Name = req.Name
	}
	product.Description = req.Description
	if req.UnitPrice > 0 {
		product.UnitPrice = req.UnitPrice
	}
	if req.ReorderLevel != nil {
		product.ReorderLevel = *req.ReorderLevel
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}
	if req.SupplierID != nil {
		product.SupplierID = req.SupplierID
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&product)
	if result.Error != nil {
		log.Error("Failed to update product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update product",
		})
	}

	log.Info("Product updated successfully",
		zap.String("product_id", id),
		zap.String("name", product.Name),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles deleting a product. The product's inventory
// transactions are kept; their history outlives the product row.
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Deleting product", zap.String("product_id", id))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := database.GetDB().Delete(&model.Product{}, id)
	if result.Error != nil {
		log.Error("Failed to delete product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete product",
		})
	}

	if result.RowsAffected == 0 {
		log.Warn("Product not found for deletion", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	log.Info("Product deleted successfully", zap.String("product_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product deleted successfully",
	})
}

// AdjustStock handles manual stock adjustments through the ledger
func AdjustStock(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid product ID",
		})
	}

	var req AdjustStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.Adjustment == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing adjustment value",
		})
	}

	notes := req.Notes
	if notes == "" {
		notes = "Manual stock adjustment"
	}

	log.Info("Adjusting product stock",
		zap.Uint64("product_id", id),
		zap.Int("adjustment", *req.Adjustment))

	product, err := stockLedger.AdjustStock(c.Request().Context(), uint(id), *req.Adjustment, notes)
	if err != nil {
		log.Warn("Stock adjustment rejected",
			zap.Uint64("product_id", id),
			zap.Error(err))
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Stock adjusted successfully",
		"product": product,
	})
}

// ListLowStockProducts retrieves products at or below their reorder level
func ListLowStockProducts(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing low stock products")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var products []model.Product
	result := database.GetDB().Where("stock_level <= reorder_level").Find(&products)
	if result.Error != nil {
		log.Error("Failed to list low stock products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	return c.JSON(http.StatusOK, products)
}

// ListProductTransactions retrieves the ledger history of a product
func ListProductTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid product ID",
		})
	}

	transactions, err := stockLedger.ProductTransactions(c.Request().Context(), uint(id))
	if err != nil {
		log.Warn("Failed to list product transactions",
			zap.Uint64("product_id", id),
			zap.Error(err))
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, transactions)
}
