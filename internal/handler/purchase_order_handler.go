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

// PurchaseOrderRequest defines the structure for purchase order creation requests
type PurchaseOrderRequest struct {
	SupplierID           uint                              `json:"supplier_id"`
	ExpectedDeliveryDate string                            `json:"expected_delivery_date"`
	Notes                string                            `json:"notes"`
	Items                []ledger.PurchaseOrderItemRequest `json:"items"`
}

// PurchaseOrderUpdateRequest defines the structure for non-stock updates
type PurchaseOrderUpdateRequest struct {
	ExpectedDeliveryDate *string `json:"expected_delivery_date"`
	Notes                *string `json:"notes"`
}

// ListPurchaseOrders handles retrieving all purchase orders with optional filtering
func ListPurchaseOrders(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing purchase orders")

	query := database.GetDB().Preload("Items")

	status := c.QueryParam("status")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	supplierID := c.QueryParam("supplier_id")
	if supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("query")(time.Now())

	var purchaseOrders []model.PurchaseOrder
	result := query.Order("order_date DESC").Find(&purchaseOrders)
	if result.Error != nil {
		log.Error("Failed to list purchase orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve purchase orders",
		})
	}

	log.Info("Purchase orders retrieved successfully", zap.Int("count", len(purchaseOrders)))
	return c.JSON(http.StatusOK, purchaseOrders)
}

// GetPurchaseOrder handles retrieving a single purchase order by ID
func GetPurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var po model.PurchaseOrder
	result := database.GetDB().Preload("Items").First(&po, id)
	if result.Error != nil {
		log.Error("Purchase order not found",
			zap.String("purchase_order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Purchase order not found",
		})
	}

	return c.JSON(http.StatusOK, po)
}

// CreatePurchaseOrder handles purchase order creation. Stock does not
// move until the purchase order is received.
func CreatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new purchase order")

	var req PurchaseOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.SupplierID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing supplier_id",
		})
	}

	expectedDelivery, err := parseDate(req.ExpectedDeliveryDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid expected_delivery_date, expected YYYY-MM-DD",
		})
	}

	po, err := stockLedger.CreatePurchaseOrder(c.Request().Context(), ledger.CreatePurchaseOrderRequest{
		SupplierID:           req.SupplierID,
		ExpectedDeliveryDate: expectedDelivery,
		Notes:                req.Notes,
		Items:                req.Items,
	})
	if err != nil {
		log.Warn("Purchase order creation rejected", zap.Error(err))
		return ledgerError(c, err)
	}

	log.Info("Purchase order created successfully",
		zap.Uint("purchase_order_id", po.ID),
		zap.Uint("supplier_id", po.SupplierID))
	return c.JSON(http.StatusCreated, po)
}

// UpdatePurchaseOrder handles updating a purchase order's non-stock fields
func UpdatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Updating purchase order", zap.String("purchase_order_id", id))

	var req PurchaseOrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	var po model.PurchaseOrder
	result := database.GetDB().Preload("Items").First(&po, id)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Purchase order not found",
		})
	}

	if req.ExpectedDeliveryDate != nil {
		expectedDelivery, err := parseDate(*req.ExpectedDeliveryDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid expected_delivery_date, expected YYYY-MM-DD",
			})
		}
		po.ExpectedDeliveryDate = expectedDelivery
	}
	if req.Notes != nil {
		po.Notes = *req.Notes
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&po)
	if result.Error != nil {
		log.Error("Failed to update purchase order",
			zap.String("purchase_order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update purchase order",
		})
	}

	return c.JSON(http.StatusOK, po)
}

// ReceivePurchaseOrder marks a purchase order as received; the ledger
// increments stock and appends IN transactions atomically.
func ReceivePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid purchase order ID",
		})
	}

	log.Info("Receiving purchase order", zap.Uint64("purchase_order_id", id))

	po, err := stockLedger.ReceivePurchaseOrder(c.Request().Context(), uint(id))
	if err != nil {
		log.Warn("Purchase order receipt rejected",
			zap.Uint64("purchase_order_id", id),
			zap.Error(err))
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":        "Purchase order received successfully",
		"purchase_order": po,
	})
}

// DeletePurchaseOrder handles deleting a pending or cancelled purchase order
func DeletePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid purchase order ID",
		})
	}

	log.Info("Deleting purchase order", zap.Uint64("purchase_order_id", id))

	if err := stockLedger.DeletePurchaseOrder(c.Request().Context(), uint(id)); err != nil {
		log.Warn("Purchase order deletion rejected",
			zap.Uint64("purchase_order_id", id),
			zap.Error(err))
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Purchase order deleted successfully",
	})
}
