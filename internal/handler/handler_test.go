package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inventory-service/internal/ledger"
	"inventory-service/internal/model"
	"inventory-service/pkg/database"
)

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.SetDB(db)
	Init(ledger.New(db))
	return db
}

// request builds an echo context around a JSON request and a recorder
func request(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, SKU: name, UnitPrice: price, StockLevel: stock, ReorderLevel: 10}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestCreateProductHandler(t *testing.T) {
	setup(t)

	c, rec := request(t, http.MethodPost, "/api/products",
		`{"name":"Widget","sku":"WID-1","unit_price":4.5,"stock_level":25}`)
	if err := CreateProduct(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created model.Product
	decode(t, rec, &created)
	if created.ID == 0 || created.StockLevel != 25 {
		t.Fatalf("unexpected product %+v", created)
	}

	// duplicate SKU is a conflict
	c, rec = request(t, http.MethodPost, "/api/products",
		`{"name":"Other","sku":"WID-1","unit_price":1,"stock_level":1}`)
	if err := CreateProduct(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateProductValidation(t *testing.T) {
	setup(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"unit_price":4.5}`},
		{"missing price", `{"name":"Widget"}`},
		{"negative stock", `{"name":"Widget","unit_price":4.5,"stock_level":-1}`},
	}
	for _, tc := range cases {
		c, rec := request(t, http.MethodPost, "/api/products", tc.body)
		if err := CreateProduct(c); err != nil {
			t.Fatalf("%s: handler error: %v", tc.name, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestUpdateProductDoesNotTouchStock(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 25)

	c, rec := request(t, http.MethodPut, "/api/products/1",
		`{"name":"Renamed","unit_price":6,"stock_level":999}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	if err := UpdateProduct(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated model.Product
	if err := db.First(&updated, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if updated.Name != "Renamed" || updated.UnitPrice != 6 {
		t.Fatalf("fields not updated: %+v", updated)
	}
	if updated.StockLevel != 25 {
		t.Fatalf("stock edited outside the ledger: %d", updated.StockLevel)
	}
}

func TestAdjustStockHandler(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 5)

	c, rec := request(t, http.MethodPost, "/api/products/1/adjust-stock",
		`{"adjustment":-5,"notes":"damaged in transit"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	if err := AdjustStock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// past zero is a client error
	c, rec = request(t, http.MethodPost, "/api/products/1/adjust-stock",
		`{"adjustment":-1}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	if err := AdjustStock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	// missing adjustment field
	c, rec = request(t, http.MethodPost, "/api/products/1/adjust-stock",
		`{"notes":"no value"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	if err := AdjustStock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderHandler(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 10)

	body := fmt.Sprintf(`{"customer_name":"Ada","items":[{"product_id":%d,"quantity":4}]}`, p.ID)
	c, rec := request(t, http.MethodPost, "/api/orders", body)
	if err := CreateOrder(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var order model.Order
	decode(t, rec, &order)
	if order.Status != model.OrderStatusPending || order.TotalAmount != 18 {
		t.Fatalf("unexpected order %+v", order)
	}

	var reloaded model.Product
	if err := db.First(&reloaded, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockLevel != 6 {
		t.Fatalf("expected stock 6, got %d", reloaded.StockLevel)
	}
}

func TestCreateOrderHandlerInsufficientStock(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 3)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":4}]}`, p.ID)
	c, rec := request(t, http.MethodPost, "/api/orders", body)
	if err := CreateOrder(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	decode(t, rec, &resp)
	msg, _ := resp["error"].(string)
	if !strings.Contains(msg, "Available: 3") || !strings.Contains(msg, "Requested: 4") {
		t.Fatalf("error lacks stock detail: %q", msg)
	}
}

func TestCreateOrderHandlerBadDate(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 10)

	body := fmt.Sprintf(`{"delivery_date":"tomorrow","items":[{"product_id":%d,"quantity":1}]}`, p.ID)
	c, rec := request(t, http.MethodPost, "/api/orders", body)
	if err := CreateOrder(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOrderStatusHandler(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 10)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":2}]}`, p.ID)
	c, rec := request(t, http.MethodPost, "/api/orders", body)
	if err := CreateOrder(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	var order model.Order
	decode(t, rec, &order)

	// cancel through the status endpoint restores stock
	c, rec = request(t, http.MethodPut, "/api/orders/1/status", `{"status":"Cancelled"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	if err := UpdateOrderStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded model.Product
	if err := db.First(&reloaded, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockLevel != 10 {
		t.Fatalf("expected stock restored to 10, got %d", reloaded.StockLevel)
	}

	// cancelled orders cannot ship
	c, rec = request(t, http.MethodPut, "/api/orders/1/status", `{"status":"Shipped"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	if err := UpdateOrderStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReceivePurchaseOrderHandler(t *testing.T) {
	db := setup(t)
	s := &model.Supplier{Name: "Acme"}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	p := seedProduct(t, db, "Widget", 4.5, 2)

	body := fmt.Sprintf(`{"supplier_id":%d,"items":[{"product_id":%d,"quantity":8,"unit_cost":2.5}]}`, s.ID, p.ID)
	c, rec := request(t, http.MethodPost, "/api/purchase-orders", body)
	if err := CreatePurchaseOrder(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var po model.PurchaseOrder
	decode(t, rec, &po)

	c, rec = request(t, http.MethodPost, "/api/purchase-orders/1/receive", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(po.ID))
	if err := ReceivePurchaseOrder(c); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded model.Product
	if err := db.First(&reloaded, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockLevel != 10 {
		t.Fatalf("expected stock 10, got %d", reloaded.StockLevel)
	}

	// second receive is rejected
	c, rec = request(t, http.MethodPost, "/api/purchase-orders/1/receive", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(po.ID))
	if err := ReceivePurchaseOrder(c); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteSupplierWithProducts(t *testing.T) {
	db := setup(t)
	s := &model.Supplier{Name: "Acme"}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	p := seedProduct(t, db, "Widget", 4.5, 2)
	if err := db.Model(p).Update("supplier_id", s.ID).Error; err != nil {
		t.Fatalf("link supplier: %v", err)
	}

	c, rec := request(t, http.MethodDelete, "/api/suppliers/1", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(s.ID))
	if err := DeleteSupplier(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var count int64
	db.Model(&model.Supplier{}).Count(&count)
	if count != 1 {
		t.Fatalf("supplier deleted despite associated products")
	}
}

func TestListLowStockProductsHandler(t *testing.T) {
	db := setup(t)
	seedProduct(t, db, "Low", 1, 5)    // reorder level 10
	seedProduct(t, db, "High", 1, 50)

	c, rec := request(t, http.MethodGet, "/api/products/low-stock", "")
	if err := ListLowStockProducts(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var products []model.Product
	decode(t, rec, &products)
	if len(products) != 1 || products[0].Name != "Low" {
		t.Fatalf("unexpected low stock set: %+v", products)
	}
	if !products[0].LowStock {
		t.Fatalf("low_stock flag not set on %+v", products[0])
	}
}

func TestProductPerformanceReportHandler(t *testing.T) {
	db := setup(t)
	cat := &model.Category{Name: "Hardware"}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	p := seedProduct(t, db, "Widget", 4.0, 10)
	if err := db.Model(p).Update("category_id", cat.ID).Error; err != nil {
		t.Fatalf("link category: %v", err)
	}

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":3}]}`, p.ID)
	c, rec := request(t, http.MethodPost, "/api/orders", body)
	if err := CreateOrder(c); err != nil {
		t.Fatalf("create order: %v", err)
	}
	var order model.Order
	decode(t, rec, &order)
	if err := db.Model(&model.Order{}).Where("id = ?", order.ID).
		Update("status", model.OrderStatusDelivered).Error; err != nil {
		t.Fatalf("deliver order: %v", err)
	}

	c, rec = request(t, http.MethodGet, "/api/reports/product-performance", "")
	if err := ProductPerformanceReport(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ProductPerformance []struct {
			ProductID    uint    `json:"product_id"`
			CategoryName *string `json:"category_name"`
			TotalSold    int     `json:"total_sold"`
			TotalRevenue float64 `json:"total_revenue"`
			TimesOrdered int     `json:"times_ordered"`
			StockLevel   int     `json:"stock_level"`
			InitialStock int     `json:"initial_stock"`
		} `json:"product_performance"`
	}
	decode(t, rec, &resp)
	if len(resp.ProductPerformance) != 1 {
		t.Fatalf("expected 1 row, got %d", len(resp.ProductPerformance))
	}
	row := resp.ProductPerformance[0]
	if row.ProductID != p.ID || row.TotalSold != 3 || row.TotalRevenue != 12 || row.TimesOrdered != 1 {
		t.Fatalf("unexpected row %+v", row)
	}
	// sell-through context: stock on hand plus units sold
	if row.StockLevel != 7 || row.InitialStock != 10 {
		t.Fatalf("unexpected stock figures %+v", row)
	}
	if row.CategoryName == nil || *row.CategoryName != "Hardware" {
		t.Fatalf("category missing from row %+v", row)
	}
}

func TestProductTransactionsHandler(t *testing.T) {
	db := setup(t)
	p := seedProduct(t, db, "Widget", 4.5, 10)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":2}]}`, p.ID)
	c, _ := request(t, http.MethodPost, "/api/orders", body)
	if err := CreateOrder(c); err != nil {
		t.Fatalf("create order: %v", err)
	}

	c, rec := request(t, http.MethodGet, "/api/products/1/transactions", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	if err := ListProductTransactions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var txns []model.InventoryTransaction
	decode(t, rec, &txns)
	if len(txns) != 1 || txns[0].TransactionType != model.TransactionOut {
		t.Fatalf("unexpected transactions %+v", txns)
	}

	// unknown product is a 404
	c, rec = request(t, http.MethodGet, "/api/products/9999/transactions", "")
	c.SetParamNames("id")
	c.SetParamValues("9999")
	if err := ListProductTransactions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
