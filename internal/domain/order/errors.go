package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order placement and status changes.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingProduct  = errors.New("product identifier is required")
	ErrMissingAddress  = errors.New("shipping address not provided or saved")
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("order belongs to another user")
	ErrNotCancellable  = errors.New("cannot cancel shipped or delivered orders")
	ErrAlreadyCanceled = errors.New("order is already cancelled")
	ErrStatusChanged   = errors.New("order status changed concurrently")
)

// ProductNotFoundError indicates a cart line references an unknown product.
type ProductNotFoundError struct {
	Identifier string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.Identifier)
}

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	Identifier string
	Quantity   int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.Identifier)
}

// InsufficientStockError indicates the requested quantity exceeds stock.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for: %s (requested %d, available %d)", e.Title, e.Requested, e.Available)
}

// StockConflictError is returned by repositories when a conditional stock
// decrement matched no row at commit time.
type StockConflictError struct {
	ProductID string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock changed for product %s", e.ProductID)
}

// InvalidStatusError indicates an unknown delivery status value.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid delivery status %q", e.Status)
}
