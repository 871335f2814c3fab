package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"inventory-service/internal/ledger"
	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"
)

// OrderRequest defines the structure for order creation requests
type OrderRequest struct {
	CustomerName  string                    `json:"customer_name"`
	CustomerEmail string                    `json:"customer_email"`
	DeliveryDate  string                    `json:"delivery_date"`
	Notes         string                    `json:"notes"`
	Items         []ledger.OrderItemRequest `json:"items"`
}

// OrderUpdateRequest defines the structure for non-stock order updates
type OrderUpdateRequest struct {
	CustomerName  *string `json:"customer_name"`
	CustomerEmail *string `json:"customer_email"`
	DeliveryDate  *string `json:"delivery_date"`
	Notes         *string `json:"notes"`
}

// OrderStatusRequest defines the structure for status transitions
type OrderStatusRequest struct {
	Status string `json:"status"`
}

// parseDate parses the YYYY-MM-DD date format used by order payloads
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListOrders handles retrieving all orders with optional filtering
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing orders")

	query := database.GetDB().Preload("Items")

	status := c.QueryParam("status")
	if status != "" {
		query = query.Where("status = ?", status)
		log.Info("Filtering orders by status", zap.String("status", status))
	}

	customerEmail := c.QueryParam("customer_email")
	if customerEmail != "" {
		query = query.Where("customer_email LIKE ?", "%"+customerEmail+"%")
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("query")(time.Now())

	var orders []model.Order
	result := query.Order("order_date DESC").Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve orders",
		})
	}

	log.Info("Orders retrieved successfully", zap.Int("count", len(orders)))
	return c.JSON(http.StatusOK, orders)
}

// GetOrder handles retrieving a single order by ID
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var order model.Order
	result := database.GetDB().Preload("Items").First(&order, id)
	if result.Error != nil {
		log.Error("Order not found",
			zap.String("order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Order not found",
		})
	}

	return c.JSON(http.StatusOK, order)
}

// CreateOrder handles order creation through the ledger: stock is
// reserved and OUT transactions are appended atomically with the order.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new order")

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	deliveryDate, err := parseDate(req.DeliveryDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid delivery_date, expected YYYY-MM-DD",
		})
	}

	order, err := stockLedger.CreateOrder(c.Request().Context(), ledger.CreateOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		DeliveryDate:  deliveryDate,
		Notes:         req.Notes,
		Items:         req.Items,
	})
	if err != nil {
		log.Warn("Order creation rejected", zap.Error(err))
		return ledgerError(c, err)
	}

	log.Info("Order created successfully",
		zap.Uint("order_id", order.ID),
		zap.Float64("total_amount", order.TotalAmount))
	return c.JSON(http.StatusCreated, order)
}

// UpdateOrder handles updating an order's non-stock fields
func UpdateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Updating order", zap.String("order_id", id))

	var req OrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	var order model.Order
	result := database.GetDB().Preload("Items").First(&order, id)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Order not found",
		})
	}

	if req.CustomerName != nil {
		order.CustomerName = *req.CustomerName
	}
	if req.CustomerEmail != nil {
		order.CustomerEmail = *req.CustomerEmail
	}
	if req.DeliveryDate != nil {
		deliveryDate, err := parseDate(*req.DeliveryDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid delivery_date, expected YYYY-MM-DD",
			})
		}
		order.DeliveryDate = deliveryDate
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&order)
	if result.Error != nil {
		log.Error("Failed to update order",
			zap.String("order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update order",
		})
	}

	return c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles status transitions; cancelling a pending
// order restores stock through the ledger.
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid order ID",
		})
	}

	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing status field",
		})
	}

	log.Info("Updating order status",
		zap.Uint64("order_id", id),
		zap.String("status", req.Status))

	order, err := stockLedger.UpdateOrderStatus(c.Request().Context(), uint(id), model.OrderStatus(req.Status))
	if err != nil {
		log.Warn("Order status update rejected",
			zap.Uint64("order_id", id),
			zap.String("status", req.Status),
			zap.Error(err))
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

// DeleteOrder handles order deletion; deleting a pending order
// restores stock through the ledger.
func DeleteOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid order ID",
		})
	}

	log.Info("Deleting order", zap.Uint64("order_id", id))

	if err := stockLedger.DeleteOrder(c.Request().Context(), uint(id)); err != nil {
		log.Warn("Order deletion rejected",
			zap.Uint64("order_id", id),
			zap.Error(err))
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Order deleted successfully",
	})
}

// GetOrderStats handles retrieving order counters and revenue totals
func GetOrderStats(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())

	db := database.GetDB()
	stats := echo.Map{}

	var total int64
	if err := db.Model(&model.Order{}).Count(&total).Error; err != nil {
		log.Error("Failed to compute order stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to compute order stats",
		})
	}
	stats["total_orders"] = total

	counts := map[string]model.OrderStatus{
		"pending_orders":   model.OrderStatusPending,
		"shipped_orders":   model.OrderStatusShipped,
		"delivered_orders": model.OrderStatusDelivered,
		"cancelled_orders": model.OrderStatusCancelled,
	}
	for key, status := range counts {
		var n int64
		if err := db.Model(&model.Order{}).Where("status = ?", status).Count(&n).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to compute order stats",
			})
		}
		stats[key] = n
	}

	var revenue float64
	row := db.Model(&model.Order{}).
		Where("status = ?", model.OrderStatusDelivered).
		Select("COALESCE(SUM(total_amount), 0)").Row()
	if err := row.Scan(&revenue); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to compute order stats",
		})
	}
	stats["total_revenue"] = revenue

	return c.JSON(http.StatusOK, stats)
}
