package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"
)

// SupplierRequest defines the structure for supplier creation/update requests
type SupplierRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

// ListSuppliers handles retrieving all suppliers with optional search
func ListSuppliers(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing suppliers")

	query := database.GetDB()

	search := c.QueryParam("search")
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR contact_person LIKE ? OR email LIKE ?", pattern, pattern, pattern)
		log.Info("Searching suppliers", zap.String("search", search))
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("query")(time.Now())

	var suppliers []model.Supplier
	result := query.Find(&suppliers)
	if result.Error != nil {
		log.Error("Failed to list suppliers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve suppliers",
		})
	}

	log.Info("Suppliers retrieved successfully", zap.Int("count", len(suppliers)))
	return c.JSON(http.StatusOK, suppliers)
}

// GetSupplier handles retrieving a single supplier by ID
func GetSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var supplier model.Supplier
	result := database.GetDB().First(&supplier, id)
	if result.Error != nil {
		log.Error("Supplier not found",
			zap.String("supplier_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Supplier not found",
		})
	}

	return c.JSON(http.StatusOK, supplier)
}

// CreateSupplier handles creating a new supplier
func CreateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new supplier")

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing supplier name",
		})
	}

	supplier := model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&supplier)
	if result.Error != nil {
		log.Error("Failed to create supplier",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create supplier",
		})
	}

	log.Info("Supplier created successfully",
		zap.Uint("supplier_id", supplier.ID),
		zap.String("name", supplier.Name))
	return c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier handles updating an existing supplier
func UpdateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Updating supplier", zap.String("supplier_id", id))

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	var supplier model.Supplier
	result := database.GetDB().First(&supplier, id)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Supplier not found",
		})
	}

	if req.Name != "" {
		supplier.Name = req.Name
	}
	supplier.ContactPerson = req.ContactPerson
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.City = req.City
	supplier.Country = req.Country

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&supplier)
	if result.Error != nil {
		log.Error("Failed to update supplier",
			zap.String("supplier_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update supplier",
		})
	}

	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier handles deleting a supplier. Suppliers still
// referenced by products cannot be removed.
func DeleteSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Deleting supplier", zap.String("supplier_id", id))

	var supplier model.Supplier
	result := database.GetDB().First(&supplier, id)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Supplier not found",
		})
	}

	var productCount int64
	database.GetDB().Model(&model.Product{}).Where("supplier_id = ?", supplier.ID).Count(&productCount)
	if productCount > 0 {
		log.Warn("Supplier still has associated products",
			zap.Uint("supplier_id", supplier.ID),
			zap.Int64("products", productCount))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Cannot delete supplier with associated products",
		})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result = database.GetDB().Delete(&supplier)
	if result.Error != nil {
		log.Error("Failed to delete supplier",
			zap.String("supplier_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete supplier",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Supplier deleted successfully",
	})
}
