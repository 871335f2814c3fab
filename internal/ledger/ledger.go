// Package ledger owns every mutation of product stock levels. Each
// operation runs as a single gorm transaction paired with per-product
// locks, so a stock change and its inventory transaction row are
// always persisted together or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"inventory-service/internal/model"
	"inventory-service/prometheus"
)

// Ledger applies stock mutations and appends the matching inventory
// transactions. Operations touching the same product never interleave:
// locks are taken for every product in the request before the database
// transaction starts and released after it commits or rolls back.
type Ledger struct {
	db    *gorm.DB
	locks *productLocks
}

// New creates a Ledger on top of the given database handle
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, locks: newProductLocks()}
}

// OrderItemRequest is one requested order line. UnitPrice overrides the
// product's current price when set.
type OrderItemRequest struct {
	ProductID uint     `json:"product_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

// CreateOrderRequest is the validated payload for order creation
type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	DeliveryDate  *time.Time         `json:"-"`
	Notes         string             `json:"notes"`
	Items         []OrderItemRequest `json:"items"`
}

// PurchaseOrderItemRequest is one requested purchase order line
type PurchaseOrderItemRequest struct {
	ProductID uint    `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitCost  float64 `json:"unit_cost"`
}

// CreatePurchaseOrderRequest is the validated payload for purchase order creation
type CreatePurchaseOrderRequest struct {
	SupplierID           uint                       `json:"supplier_id"`
	ExpectedDeliveryDate *time.Time                 `json:"-"`
	Notes                string                     `json:"notes"`
	Items                []PurchaseOrderItemRequest `json:"items"`
}

// CreateOrder validates every line, then creates the order, decrements
// stock and appends one OUT transaction per line, all inside a single
// database transaction. If any line fails validation no stock change
// and no transaction row is persisted for any line.
func (l *Ledger) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]uint, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		ids = append(ids, it.ProductID)
	}

	unlock := l.locks.lockAll(ids)
	defer unlock()

	order := &model.Order{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		DeliveryDate:  req.DeliveryDate,
		Status:        model.OrderStatusPending,
		Notes:         req.Notes,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := loadProducts(tx, ids)
		if err != nil {
			return err
		}

		// Validate every line against the stock that would remain
		// after the lines before it, so nothing is applied unless the
		// whole order fits.
		remaining := make(map[uint]int, len(products))
		for id, p := range products {
			remaining[id] = p.StockLevel
		}
		for _, it := range req.Items {
			p := products[it.ProductID]
			if remaining[it.ProductID] < it.Quantity {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   remaining[it.ProductID],
					Requested:   it.Quantity,
				}
			}
			remaining[it.ProductID] -= it.Quantity
		}

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		var total float64
		for _, it := range req.Items {
			p := products[it.ProductID]

			unitPrice := p.UnitPrice
			if it.UnitPrice != nil {
				unitPrice = *it.UnitPrice
			}
			item := model.OrderItem{
				OrderID:    order.ID,
				ProductID:  p.ID,
				Quantity:   it.Quantity,
				UnitPrice:  unitPrice,
				TotalPrice: unitPrice * float64(it.Quantity),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)
			total += item.TotalPrice

			if err := decrementStock(tx, p.ID, it.Quantity); err != nil {
				return err
			}
			refID := order.ID
			if err := appendTransaction(tx, &model.InventoryTransaction{
				ProductID:       p.ID,
				TransactionType: model.TransactionOut,
				Quantity:        it.Quantity,
				ReferenceType:   model.ReferenceOrder,
				ReferenceID:     &refID,
				Notes:           fmt.Sprintf("Stock reduced due to order #%d", order.ID),
			}); err != nil {
				return err
			}
		}

		order.TotalAmount = total
		return tx.Model(order).Update("total_amount", total).Error
	})
	if err != nil {
		return nil, err
	}

	l.publishStockGauges(ctx, ids)
	zap.L().Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total_amount", order.TotalAmount))
	return order, nil
}

// CancelOrder cancels a pending order, restoring the stock of every
// line and appending one IN transaction per line with reference type
// ORDER_CANCELLATION.
func (l *Ledger) CancelOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	return l.UpdateOrderStatus(ctx, orderID, model.OrderStatusCancelled)
}

// UpdateOrderStatus moves an order to a new status. The transition
// Pending -> Cancelled restores stock through the same path as order
// deletion, producing identical transaction records. Transitions not
// allowed by the status machine fail with ErrIllegalStateTransition.
func (l *Ledger) UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, ErrIllegalStateTransition
	}

	order, err := l.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Fast path: the pre-lock read already rules out the transition.
	if !order.Status.CanTransitionTo(status) {
		return nil, ErrIllegalStateTransition
	}

	// A restore is only possible when the order is still Pending, and an
	// order never returns to Pending, so locking on the pre-lock read
	// covers every interleaving.
	mayRestore := order.Status == model.OrderStatusPending && status == model.OrderStatusCancelled
	if mayRestore {
		unlock := l.locks.lockAll(itemProductIDs(order.Items))
		defer unlock()
	}

	restored := false
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check under the locks: the status may have moved since the
		// pre-lock read, and a stale Pending would double-restore.
		var current model.Order
		if err := tx.Preload("Items").First(&current, order.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !current.Status.CanTransitionTo(status) {
			return ErrIllegalStateTransition
		}
		if current.Status == model.OrderStatusPending && status == model.OrderStatusCancelled {
			if err := restoreOrderStock(tx, &current); err != nil {
				return err
			}
			restored = true
		}
		return tx.Model(&model.Order{}).Where("id = ?", order.ID).
			Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	order.Status = status
	if restored {
		l.publishStockGauges(ctx, itemProductIDs(order.Items))
		zap.L().Info("Order cancelled, stock restored",
			zap.Uint("order_id", order.ID),
			zap.Int("items", len(order.Items)))
	}
	return order, nil
}

// DeleteOrder removes an order. Only Pending and Cancelled orders may
// be deleted; deleting a Pending order restores stock exactly like a
// cancellation. Inventory transactions referencing the order are kept.
func (l *Ledger) DeleteOrder(ctx context.Context, orderID uint) error {
	order, err := l.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != model.OrderStatusPending && order.Status != model.OrderStatusCancelled {
		return ErrIllegalStateTransition
	}

	// Lock whenever the pre-lock read still allows a restore; the
	// authoritative status check happens inside the transaction.
	if order.Status == model.OrderStatusPending {
		unlock := l.locks.lockAll(itemProductIDs(order.Items))
		defer unlock()
	}

	restored := false
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Order
		if err := tx.Preload("Items").First(&current, order.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if current.Status != model.OrderStatusPending && current.Status != model.OrderStatusCancelled {
			return ErrIllegalStateTransition
		}
		if current.Status == model.OrderStatusPending {
			if err := restoreOrderStock(tx, &current); err != nil {
				return err
			}
			restored = true
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Order{}, order.ID).Error
	})
	if err != nil {
		return err
	}

	if restored {
		l.publishStockGauges(ctx, itemProductIDs(order.Items))
	}
	zap.L().Info("Order deleted", zap.Uint("order_id", orderID))
	return nil
}

// CreatePurchaseOrder records a replenishment order against a supplier.
// Stock does not move until the purchase order is received.
func (l *Ledger) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	var supplier model.Supplier
	if err := l.db.WithContext(ctx).First(&supplier, req.SupplierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}

	po := &model.PurchaseOrder{
		SupplierID:           req.SupplierID,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Status:               model.OrderStatusPending,
		Notes:                req.Notes,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(req.Items))
		for _, it := range req.Items {
			ids = append(ids, it.ProductID)
		}
		if _, err := loadProducts(tx, ids); err != nil {
			return err
		}

		if err := tx.Create(po).Error; err != nil {
			return err
		}

		var total float64
		for _, it := range req.Items {
			item := model.PurchaseOrderItem{
				PurchaseOrderID: po.ID,
				ProductID:       it.ProductID,
				Quantity:        it.Quantity,
				UnitCost:        it.UnitCost,
				TotalCost:       it.UnitCost * float64(it.Quantity),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			po.Items = append(po.Items, item)
			total += item.TotalCost
		}

		po.TotalAmount = total
		return tx.Model(po).Update("total_amount", total).Error
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Purchase order created",
		zap.Uint("purchase_order_id", po.ID),
		zap.Uint("supplier_id", po.SupplierID),
		zap.Float64("total_amount", po.TotalAmount))
	return po, nil
}

// ReceivePurchaseOrder marks a purchase order as Delivered and
// increments stock for every line, appending one IN transaction per
// line. Receiving an already delivered purchase order fails with
// ErrAlreadyReceived and moves no stock.
func (l *Ledger) ReceivePurchaseOrder(ctx context.Context, poID uint) (*model.PurchaseOrder, error) {
	po, err := l.getPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, err
	}
	// Fast path; the authoritative check runs again under the locks.
	if po.Status == model.OrderStatusDelivered {
		return nil, ErrAlreadyReceived
	}

	ids := make([]uint, 0, len(po.Items))
	for _, it := range po.Items {
		ids = append(ids, it.ProductID)
	}
	unlock := l.locks.lockAll(ids)
	defer unlock()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check under the locks: a concurrent receive that committed
		// after the pre-lock read must not credit stock twice.
		var current model.PurchaseOrder
		if err := tx.First(&current, po.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseOrderNotFound
			}
			return err
		}
		if current.Status == model.OrderStatusDelivered {
			return ErrAlreadyReceived
		}
		for _, it := range po.Items {
			var product model.Product
			if err := tx.First(&product, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Product removed after the purchase order was
					// placed; its history stays orphaned.
					zap.L().Warn("Skipping receipt line for missing product",
						zap.Uint("product_id", it.ProductID),
						zap.Uint("purchase_order_id", po.ID))
					continue
				}
				return err
			}
			if err := incrementStock(tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
			refID := po.ID
			if err := appendTransaction(tx, &model.InventoryTransaction{
				ProductID:       it.ProductID,
				TransactionType: model.TransactionIn,
				Quantity:        it.Quantity,
				ReferenceType:   model.ReferencePurchaseOrder,
				ReferenceID:     &refID,
				Notes:           fmt.Sprintf("Stock increased due to purchase order #%d", po.ID),
			}); err != nil {
				return err
			}
		}
		return tx.Model(&model.PurchaseOrder{}).Where("id = ?", po.ID).
			Update("status", model.OrderStatusDelivered).Error
	})
	if err != nil {
		return nil, err
	}

	po.Status = model.OrderStatusDelivered
	l.publishStockGauges(ctx, ids)
	zap.L().Info("Purchase order received",
		zap.Uint("purchase_order_id", po.ID),
		zap.Int("items", len(po.Items)))
	return po, nil
}

// DeletePurchaseOrder removes a purchase order that has not been
// processed. Only Pending and Cancelled purchase orders may be deleted.
func (l *Ledger) DeletePurchaseOrder(ctx context.Context, poID uint) error {
	po, err := l.getPurchaseOrder(ctx, poID)
	if err != nil {
		return err
	}
	if po.Status != model.OrderStatusPending && po.Status != model.OrderStatusCancelled {
		return ErrIllegalStateTransition
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", po.ID).Delete(&model.PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PurchaseOrder{}, po.ID).Error
	})
}

// AdjustStock applies a signed manual adjustment to a product's stock
// level and appends a single ADJUSTMENT transaction carrying the
// signed quantity. Adjustments that would drive stock negative are
// rejected with ErrNegativeStock.
func (l *Ledger) AdjustStock(ctx context.Context, productID uint, delta int, note string) (*model.Product, error) {
	unlock := l.locks.lockAll([]uint{productID})
	defer unlock()

	var product model.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		newStock := product.StockLevel + delta
		if newStock < 0 {
			return ErrNegativeStock
		}

		now := time.Now().UTC()
		if err := tx.Model(&model.Product{}).Where("id = ?", productID).
			Updates(map[string]interface{}{
				"stock_level": newStock,
				"updated_at":  now,
			}).Error; err != nil {
			return err
		}
		product.StockLevel = newStock
		product.UpdatedAt = now
		product.LowStock = product.StockLevel <= product.ReorderLevel

		return appendTransaction(tx, &model.InventoryTransaction{
			ProductID:       productID,
			TransactionType: model.TransactionAdjustment,
			Quantity:        delta,
			ReferenceType:   model.ReferenceAdjustment,
			Notes:           note,
		})
	})
	if err != nil {
		return nil, err
	}

	prometheus.SetProductStock(product.ID, product.Name, float64(product.StockLevel))
	zap.L().Info("Stock adjusted",
		zap.Uint("product_id", product.ID),
		zap.Int("adjustment", delta),
		zap.Int("stock_level", product.StockLevel))
	return &product, nil
}

// ProductTransactions returns the ledger history of a product, most
// recent first.
func (l *Ledger) ProductTransactions(ctx context.Context, productID uint) ([]model.InventoryTransaction, error) {
	var product model.Product
	if err := l.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	var transactions []model.InventoryTransaction
	err := l.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("transaction_date DESC, id DESC").
		Find(&transactions).Error
	return transactions, err
}

func (l *Ledger) getOrder(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := l.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (l *Ledger) getPurchaseOrder(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := l.db.WithContext(ctx).Preload("Items").First(&po, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseOrderNotFound
		}
		return nil, err
	}
	return &po, nil
}

// loadProducts fetches every product once, failing with
// ErrProductNotFound if any id does not resolve.
func loadProducts(tx *gorm.DB, ids []uint) (map[uint]*model.Product, error) {
	products := make(map[uint]*model.Product, len(ids))
	for _, id := range ids {
		if _, ok := products[id]; ok {
			continue
		}
		var p model.Product
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		products[id] = &p
	}
	return products, nil
}

// decrementStock applies a guarded decrement: the row is only touched
// while it still holds enough stock, so the database rejects an
// oversell even if a concurrent writer slipped past validation.
func decrementStock(tx *gorm.DB, productID uint, quantity int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock_level >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock_level": gorm.Expr("stock_level - ?", quantity),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var p model.Product
		if err := tx.First(&p, productID).Error; err != nil {
			return ErrProductNotFound
		}
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.StockLevel,
			Requested:   quantity,
		}
	}
	return nil
}

func incrementStock(tx *gorm.DB, productID uint, quantity int) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock_level": gorm.Expr("stock_level + ?", quantity),
			"updated_at":  time.Now().UTC(),
		}).Error
}

// restoreOrderStock puts every line of a pending order back into stock.
// Both cancellation and deletion of a pending order go through here,
// so both produce identical ORDER_CANCELLATION records.
func restoreOrderStock(tx *gorm.DB, order *model.Order) error {
	for _, item := range order.Items {
		var product model.Product
		if err := tx.First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				zap.L().Warn("Skipping stock restore for missing product",
					zap.Uint("product_id", item.ProductID),
					zap.Uint("order_id", order.ID))
				continue
			}
			return err
		}
		if err := incrementStock(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		refID := order.ID
		if err := appendTransaction(tx, &model.InventoryTransaction{
			ProductID:       item.ProductID,
			TransactionType: model.TransactionIn,
			Quantity:        item.Quantity,
			ReferenceType:   model.ReferenceOrderCancellation,
			ReferenceID:     &refID,
			Notes:           fmt.Sprintf("Stock restored due to order #%d cancellation", order.ID),
		}); err != nil {
			return err
		}
	}
	return nil
}

// appendTransaction writes one ledger row. Rows are append-only; no
// code path updates or deletes them.
func appendTransaction(tx *gorm.DB, t *model.InventoryTransaction) error {
	if err := tx.Create(t).Error; err != nil {
		return err
	}
	prometheus.RecordStockTransaction(string(t.TransactionType), string(t.ReferenceType))
	return nil
}

func itemProductIDs(items []model.OrderItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// publishStockGauges refreshes the stock gauge for the given products
// after a committed mutation. Failures only affect metrics, never the
// operation result.
func (l *Ledger) publishStockGauges(ctx context.Context, ids []uint) {
	var products []model.Product
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return
	}
	for _, p := range products {
		prometheus.SetProductStock(p.ID, p.Name, float64(p.StockLevel))
	}
}
