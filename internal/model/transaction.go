package model

import "time"

// TransactionType classifies the direction of a stock movement
type TransactionType string

const (
	TransactionIn         TransactionType = "IN"
	TransactionOut        TransactionType = "OUT"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// ReferenceType names the business event that caused a stock movement
type ReferenceType string

const (
	ReferenceOrder             ReferenceType = "ORDER"
	ReferenceOrderCancellation ReferenceType = "ORDER_CANCELLATION"
	ReferencePurchaseOrder     ReferenceType = "PURCHASE_ORDER"
	ReferenceAdjustment        ReferenceType = "ADJUSTMENT"
)

// InventoryTransaction is one append-only entry of the stock ledger.
// Rows are created by the ledger at the moment a stock mutation is
// applied and are never updated or deleted. Quantity is positive for
// IN and OUT rows (direction implied by the type); ADJUSTMENT rows
// carry the signed delta so the ledger reconciles without any
// out-of-band sign convention.
type InventoryTransaction struct {
	ID              uint            `json:"id" gorm:"primarykey"`
	ProductID       uint            `json:"product_id" gorm:"index;not null"`
	TransactionType TransactionType `json:"transaction_type" gorm:"type:varchar(20);not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	ReferenceType   ReferenceType   `json:"reference_type" gorm:"type:varchar(50)"`
	ReferenceID     *uint           `json:"reference_id"`
	Notes           string          `json:"notes" gorm:"type:text"`
	TransactionDate time.Time       `json:"transaction_date" gorm:"autoCreateTime;index"`
}

// SignedQuantity returns the stock delta this entry represents
func (t *InventoryTransaction) SignedQuantity() int {
	switch t.TransactionType {
	case TransactionIn:
		return t.Quantity
	case TransactionOut:
		return -t.Quantity
	}
	return t.Quantity
}
