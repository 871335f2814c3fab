package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"
)

func intQueryParam(c echo.Context, name string, defaultValue int) int {
	value := c.QueryParam(name)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// LowInventoryReport lists products at or below their reorder level,
// with supplier contact details for reordering, worst shortage first.
func LowInventoryReport(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Building low inventory report")
	defer prometheus.TrackDBOperation("query")(time.Now())

	type lowInventoryRow struct {
		ProductID        uint    `json:"product_id"`
		ProductName      string  `json:"product_name"`
		SKU              string  `json:"sku"`
		CategoryName     *string `json:"category_name"`
		StockLevel       int     `json:"stock_level"`
		ReorderLevel     int     `json:"reorder_level"`
		UnitPrice        float64 `json:"unit_price"`
		SupplierName     *string `json:"supplier_name"`
		SupplierEmail    *string `json:"supplier_email"`
		SupplierPhone    *string `json:"supplier_phone"`
		ShortageQuantity int     `json:"shortage_quantity"`
	}

	var rows []lowInventoryRow
	err := database.GetDB().Model(&model.Product{}).
		Select(`products.id AS product_id, products.name AS product_name, products.sku,
			categories.name AS category_name, products.stock_level, products.reorder_level,
			products.unit_price, suppliers.name AS supplier_name, suppliers.email AS supplier_email,
			suppliers.phone AS supplier_phone,
			(products.reorder_level - products.stock_level) AS shortage_quantity`).
		Joins("LEFT JOIN categories ON products.category_id = categories.id").
		Joins("LEFT JOIN suppliers ON products.supplier_id = suppliers.id").
		Where("products.stock_level <= products.reorder_level").
		Order("shortage_quantity DESC").
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build low inventory report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"low_inventory_items": rows,
		"total_items":         len(rows),
	})
}

// SalesByCategoryReport aggregates delivered and shipped order lines
// per category.
func SalesByCategoryReport(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Building sales by category report")
	defer prometheus.TrackDBOperation("query")(time.Now())

	type categorySalesRow struct {
		CategoryName      string  `json:"category_name"`
		ProductsSold      int     `json:"products_sold"`
		TotalQuantitySold int     `json:"total_quantity_sold"`
		TotalRevenue      float64 `json:"total_revenue"`
		AvgSellingPrice   float64 `json:"avg_selling_price"`
		NumberOfOrders    int     `json:"number_of_orders"`
	}

	var rows []categorySalesRow
	err := database.GetDB().Model(&model.Category{}).
		Select(`categories.name AS category_name,
			COUNT(DISTINCT order_items.product_id) AS products_sold,
			COALESCE(SUM(order_items.quantity), 0) AS total_quantity_sold,
			COALESCE(SUM(order_items.total_price), 0) AS total_revenue,
			COALESCE(AVG(order_items.unit_price), 0) AS avg_selling_price,
			COUNT(DISTINCT order_items.order_id) AS number_of_orders`).
		Joins("LEFT JOIN products ON categories.id = products.category_id").
		Joins("LEFT JOIN order_items ON products.id = order_items.product_id").
		Joins("LEFT JOIN orders ON order_items.order_id = orders.id").
		Where("orders.status IN ? OR orders.status IS NULL",
			[]model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusShipped}).
		Group("categories.id, categories.name").
		Order("total_revenue DESC").
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build sales by category report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"sales_by_category": rows,
	})
}

// MonthlySalesReport buckets delivered and shipped orders by calendar
// month. Bucketing happens here rather than in SQL so the report works
// identically on every supported database backend.
func MonthlySalesReport(c echo.Context) error {
	log := logger.FromContext(c)
	months := intQueryParam(c, "months", 12)
	log.Info("Building monthly sales report", zap.Int("months", months))
	defer prometheus.TrackDBOperation("query")(time.Now())

	cutoff := time.Now().AddDate(0, -months, 0)

	var orders []model.Order
	err := database.GetDB().Preload("Items").
		Where("status IN ? AND order_date >= ?",
			[]model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusShipped}, cutoff).
		Find(&orders).Error
	if err != nil {
		log.Error("Failed to build monthly sales report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	type monthlySales struct {
		MonthYear      string  `json:"month_year"`
		TotalOrders    int     `json:"total_orders"`
		TotalRevenue   float64 `json:"total_revenue"`
		AvgOrderValue  float64 `json:"avg_order_value"`
		TotalItemsSold int     `json:"total_items_sold"`
	}

	buckets := map[string]*monthlySales{}
	for _, order := range orders {
		key := order.OrderDate.Format("2006-01")
		bucket, ok := buckets[key]
		if !ok {
			bucket = &monthlySales{MonthYear: key}
			buckets[key] = bucket
		}
		bucket.TotalOrders++
		bucket.TotalRevenue += order.TotalAmount
		for _, item := range order.Items {
			bucket.TotalItemsSold += item.Quantity
		}
	}

	result := make([]monthlySales, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.TotalOrders > 0 {
			bucket.AvgOrderValue = bucket.TotalRevenue / float64(bucket.TotalOrders)
		}
		result = append(result, *bucket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MonthYear > result[j].MonthYear })

	return c.JSON(http.StatusOK, echo.Map{
		"monthly_sales": result,
	})
}

// InventoryValuationReport sums stock value per category
func InventoryValuationReport(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Building inventory valuation report")
	defer prometheus.TrackDBOperation("query")(time.Now())

	type valuationRow struct {
		CategoryName string  `json:"category_name"`
		ProductCount int     `json:"product_count"`
		TotalUnits   int     `json:"total_units"`
		TotalValue   float64 `json:"total_value"`
		AvgUnitPrice float64 `json:"avg_unit_price"`
	}

	var rows []valuationRow
	err := database.GetDB().Model(&model.Category{}).
		Select(`categories.name AS category_name,
			COUNT(products.id) AS product_count,
			COALESCE(SUM(products.stock_level), 0) AS total_units,
			COALESCE(SUM(products.stock_level * products.unit_price), 0) AS total_value,
			COALESCE(AVG(products.unit_price), 0) AS avg_unit_price`).
		Joins("LEFT JOIN products ON categories.id = products.category_id").
		Group("categories.id, categories.name").
		Order("total_value DESC").
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build inventory valuation report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"inventory_valuation": rows,
	})
}

// TopSellingProductsReport ranks products by units sold on delivered
// and shipped orders.
func TopSellingProductsReport(c echo.Context) error {
	log := logger.FromContext(c)
	limit := intQueryParam(c, "limit", 10)
	log.Info("Building top selling products report", zap.Int("limit", limit))
	defer prometheus.TrackDBOperation("query")(time.Now())

	type topProductRow struct {
		ProductID      uint    `json:"product_id"`
		ProductName    string  `json:"product_name"`
		SKU            string  `json:"sku"`
		CategoryName   *string `json:"category_name"`
		TotalSold      int     `json:"total_sold"`
		TotalRevenue   float64 `json:"total_revenue"`
		OrderFrequency int     `json:"order_frequency"`
		CurrentStock   int     `json:"current_stock"`
	}

	var rows []topProductRow
	err := database.GetDB().Model(&model.Product{}).
		Select(`products.id AS product_id, products.name AS product_name, products.sku,
			categories.name AS category_name,
			SUM(order_items.quantity) AS total_sold,
			SUM(order_items.total_price) AS total_revenue,
			COUNT(DISTINCT order_items.order_id) AS order_frequency,
			products.stock_level AS current_stock`).
		Joins("LEFT JOIN categories ON products.category_id = categories.id").
		Joins("JOIN order_items ON products.id = order_items.product_id").
		Joins("JOIN orders ON order_items.order_id = orders.id").
		Where("orders.status IN ?",
			[]model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusShipped}).
		Group("products.id, products.name, products.sku, categories.name, products.stock_level").
		Order("total_sold DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build top selling products report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"top_selling_products": rows,
	})
}

// ProductPerformanceReport ranks every product by revenue, with units
// sold, order frequency and the initial stock implied by sales.
func ProductPerformanceReport(c echo.Context) error {
	log := logger.FromContext(c)
	limit := intQueryParam(c, "limit", 20)
	log.Info("Building product performance report", zap.Int("limit", limit))
	defer prometheus.TrackDBOperation("query")(time.Now())

	type performanceRow struct {
		ProductID    uint    `json:"product_id"`
		ProductName  string  `json:"product_name"`
		SKU          string  `json:"sku"`
		CategoryName *string `json:"category_name"`
		UnitPrice    float64 `json:"unit_price"`
		StockLevel   int     `json:"stock_level"`
		TotalSold    int     `json:"total_sold"`
		TotalRevenue float64 `json:"total_revenue"`
		TimesOrdered int     `json:"times_ordered"`
		InitialStock int     `json:"initial_stock"`
	}

	var rows []performanceRow
	err := database.GetDB().Model(&model.Product{}).
		Select(`products.id AS product_id, products.name AS product_name, products.sku,
			categories.name AS category_name, products.unit_price, products.stock_level,
			COALESCE(SUM(order_items.quantity), 0) AS total_sold,
			COALESCE(SUM(order_items.total_price), 0) AS total_revenue,
			COALESCE(COUNT(DISTINCT order_items.order_id), 0) AS times_ordered,
			products.stock_level + COALESCE(SUM(order_items.quantity), 0) AS initial_stock`).
		Joins("LEFT JOIN categories ON products.category_id = categories.id").
		Joins("LEFT JOIN order_items ON products.id = order_items.product_id").
		Joins("LEFT JOIN orders ON order_items.order_id = orders.id AND orders.status IN ?",
			[]model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusShipped}).
		Group("products.id, products.name, products.sku, categories.name, products.unit_price, products.stock_level").
		Order("total_revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build product performance report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"product_performance": rows,
	})
}

// RecentTransactionsReport lists the latest ledger entries with
// product context
func RecentTransactionsReport(c echo.Context) error {
	log := logger.FromContext(c)
	limit := intQueryParam(c, "limit", 50)
	log.Info("Building recent transactions report", zap.Int("limit", limit))
	defer prometheus.TrackDBOperation("query")(time.Now())

	type transactionRow struct {
		TransactionID   uint      `json:"transaction_id"`
		ProductName     string    `json:"product_name"`
		SKU             string    `json:"sku"`
		TransactionType string    `json:"transaction_type"`
		Quantity        int       `json:"quantity"`
		ReferenceType   string    `json:"reference_type"`
		ReferenceID     *uint     `json:"reference_id"`
		TransactionDate time.Time `json:"transaction_date"`
		Notes           string    `json:"notes"`
	}

	var rows []transactionRow
	err := database.GetDB().Model(&model.InventoryTransaction{}).
		Select(`inventory_transactions.id AS transaction_id,
			products.name AS product_name, products.sku,
			inventory_transactions.transaction_type, inventory_transactions.quantity,
			inventory_transactions.reference_type, inventory_transactions.reference_id,
			inventory_transactions.transaction_date, inventory_transactions.notes`).
		Joins("JOIN products ON inventory_transactions.product_id = products.id").
		Order("inventory_transactions.transaction_date DESC, inventory_transactions.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build recent transactions report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"recent_transactions": rows,
	})
}

// DashboardStats returns the headline counters for the dashboard
func DashboardStats(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Building dashboard stats")
	defer prometheus.TrackDBOperation("query")(time.Now())

	db := database.GetDB()

	var totalProducts, lowStockCount, totalOrders, pendingOrders int64
	var totalCategories, totalSuppliers, recentOrders int64
	var totalRevenue, totalInventoryValue float64

	if err := db.Model(&model.Product{}).Count(&totalProducts).Error; err != nil {
		log.Error("Failed to build dashboard stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build report",
		})
	}
	db.Model(&model.Product{}).Where("stock_level <= reorder_level").Count(&lowStockCount)
	db.Model(&model.Order{}).Count(&totalOrders)
	db.Model(&model.Order{}).Where("status = ?", model.OrderStatusPending).Count(&pendingOrders)
	db.Model(&model.Category{}).Count(&totalCategories)
	db.Model(&model.Supplier{}).Count(&totalSuppliers)

	weekAgo := time.Now().AddDate(0, 0, -7)
	db.Model(&model.Order{}).Where("order_date >= ?", weekAgo).Count(&recentOrders)

	row := db.Model(&model.Order{}).
		Where("status = ?", model.OrderStatusDelivered).
		Select("COALESCE(SUM(total_amount), 0)").Row()
	_ = row.Scan(&totalRevenue)

	row = db.Model(&model.Product{}).
		Select("COALESCE(SUM(stock_level * unit_price), 0)").Row()
	_ = row.Scan(&totalInventoryValue)

	return c.JSON(http.StatusOK, echo.Map{
		"total_products":        totalProducts,
		"low_stock_count":       lowStockCount,
		"total_orders":          totalOrders,
		"pending_orders":        pendingOrders,
		"total_revenue":         totalRevenue,
		"total_inventory_value": totalInventoryValue,
		"recent_orders":         recentOrders,
		"total_categories":      totalCategories,
		"total_suppliers":       totalSuppliers,
	})
}
