package model

import "time"

// PurchaseOrder aggregates inbound replenishment line items from a supplier
type PurchaseOrder struct {
	ID                   uint                `json:"id" gorm:"primarykey"`
	SupplierID           uint                `json:"supplier_id" gorm:"index;not null"`
	OrderDate            time.Time           `json:"order_date" gorm:"autoCreateTime"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date"`
	Status               OrderStatus         `json:"status" gorm:"type:varchar(50);default:'Pending';index"`
	TotalAmount          float64             `json:"total_amount" gorm:"default:0"`
	Notes                string              `json:"notes" gorm:"type:text"`
	Items                []PurchaseOrderItem `json:"items" gorm:"constraint:OnDelete:CASCADE"`
}

// PurchaseOrderItem is a single product line on a purchase order
type PurchaseOrderItem struct {
	ID              uint    `json:"id" gorm:"primarykey"`
	PurchaseOrderID uint    `json:"purchase_order_id" gorm:"index;not null"`
	ProductID       uint    `json:"product_id" gorm:"index;not null"`
	Quantity        int     `json:"quantity" gorm:"not null"`
	UnitCost        float64 `json:"unit_cost" gorm:"not null"`
	TotalCost       float64 `json:"total_cost" gorm:"not null"`
}
