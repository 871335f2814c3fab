package model

import "time"

// OrderStatus is the lifecycle state of a customer order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ValidOrderStatus reports whether s is one of the known order statuses
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// Pending may ship, deliver or cancel; Shipped may deliver;
// Delivered and Cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusShipped || next == OrderStatusDelivered || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	}
	return false
}

// Order aggregates customer order line items
type Order struct {
	ID            uint        `json:"id" gorm:"primarykey"`
	CustomerName  string      `json:"customer_name" gorm:"type:varchar(200)"`
	CustomerEmail string      `json:"customer_email" gorm:"type:varchar(150);index"`
	OrderDate     time.Time   `json:"order_date" gorm:"autoCreateTime"`
	DeliveryDate  *time.Time  `json:"delivery_date"`
	Status        OrderStatus `json:"status" gorm:"type:varchar(50);default:'Pending';index"`
	TotalAmount   float64     `json:"total_amount" gorm:"default:0"`
	Notes         string      `json:"notes" gorm:"type:text"`
	Items         []OrderItem `json:"items" gorm:"constraint:OnDelete:CASCADE"`
}

// OrderItem is a single product line on an order. UnitPrice is a
// snapshot taken at creation; TotalPrice is never recomputed afterwards.
type OrderItem struct {
	ID         uint    `json:"id" gorm:"primarykey"`
	OrderID    uint    `json:"order_id" gorm:"index;not null"`
	ProductID  uint    `json:"product_id" gorm:"index;not null"`
	Quantity   int     `json:"quantity" gorm:"not null"`
	UnitPrice  float64 `json:"unit_price" gorm:"not null"`
	TotalPrice float64 `json:"total_price" gorm:"not null"`
}
