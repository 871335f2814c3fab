package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents the product master data, including the live stock counter
type Product struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Name         string    `json:"name" gorm:"type:varchar(200);not null"`
	Description  string    `json:"description" gorm:"type:text"`
	SKU          string    `json:"sku" gorm:"type:varchar(50);unique"`
	CategoryID   *uint     `json:"category_id" gorm:"index"`
	SupplierID   *uint     `json:"supplier_id" gorm:"index"`
	UnitPrice    float64   `json:"unit_price" gorm:"not null"`
	StockLevel   int       `json:"stock_level" gorm:"not null;default:0"`
	ReorderLevel int       `json:"reorder_level" gorm:"default:10"`
	LowStock     bool      `json:"is_low_stock" gorm:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AfterFind computes the low-stock flag so every read carries it
func (p *Product) AfterFind(tx *gorm.DB) error {
	p.LowStock = p.StockLevel <= p.ReorderLevel
	return nil
}

// IsLowStock reports whether the product is at or below its reorder level
func (p *Product) IsLowStock() bool {
	return p.StockLevel <= p.ReorderLevel
}

// Category represents product categories
type Category struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;unique"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
