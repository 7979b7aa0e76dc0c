package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrDuplicateOrder    = errors.New("duplicate order idempotency key")
	ErrLockTimeout       = errors.New("timed out waiting for lock")
)

// StockError names the product whose stock cannot cover a requested quantity.
// errors.Is(err, ErrInsufficientStock) holds for it.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested=%d, available=%d", name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// ProductNotFound wraps ErrNotFound with the product id
func ProductNotFound(id int64) error {
	return fmt.Errorf("product %d: %w", id, ErrNotFound)
}

// CartItemNotFound wraps ErrNotFound with the cart item id
func CartItemNotFound(id int64) error {
	return fmt.Errorf("cart item %d: %w", id, ErrNotFound)
}

// OrderNotFound wraps ErrNotFound with the order id
func OrderNotFound(id int64) error {
	return fmt.Errorf("order %d: %w", id, ErrNotFound)
}
