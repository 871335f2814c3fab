package ledger

import (
	"errors"
	"fmt"
)

// Typed failures returned by ledger operations. All of them are
// recoverable, caller-visible preconditions: when one is returned no
// stock change and no transaction row has been persisted.
var (
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrPurchaseOrderNotFound  = errors.New("purchase order not found")
	ErrSupplierNotFound       = errors.New("supplier not found")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrEmptyOrder             = errors.New("order must contain at least one item")
	ErrNegativeStock          = errors.New("adjustment would result in negative stock")
	ErrAlreadyReceived        = errors.New("purchase order already received")
	ErrIllegalStateTransition = errors.New("illegal order state transition")
)

// InsufficientStockError reports a rejected order line: the product
// did not have enough stock on hand to cover the requested quantity.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d",
		e.ProductName, e.Available, e.Requested)
}
