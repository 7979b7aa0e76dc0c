package store

import (
	"context"

	"storefront/internal/models"
)

// Catalog owns the product lifecycle
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// AdjustStock adds delta to the product's stock and returns the new level.
	// A result below zero is refused with a *models.StockError.
	AdjustStock(ctx context.Context, id int64, delta int) (int, error)
}

// Carts owns cart items. At most one item exists per (session, product).
type Carts interface {
	// AddCartItem creates the (session, product) line or merges quantity into it
	AddCartItem(ctx context.Context, sessionID string, productID int64, quantity int) (*models.CartItem, error)
	GetCartItem(ctx context.Context, id int64) (*models.CartItem, error)
	SetCartItemQuantity(ctx context.Context, id int64, quantity int) error
	DeleteCartItem(ctx context.Context, id int64) error
	ClearCart(ctx context.Context, sessionID string) (int64, error)

	// ListCartLines returns the session's items joined with their products, in insertion order
	ListCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error)
}

// Orders is the append-only order ledger
type Orders interface {
	// CreateOrder inserts the order and its items, filling ids and timestamps
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)

	// GetOrderByIdempotencyKey returns nil, nil when no order carries key
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// Tx is a unit of work. Reads through LockCartLines hold the returned
// products against concurrent stock writers until the transaction ends.
type Tx interface {
	Catalog
	Carts
	Orders

	LockCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error)
	LockProduct(ctx context.Context, id int64) (*models.Product, error)
}

// Repository is the durable keyed store behind the storefront
type Repository interface {
	Catalog
	Carts
	Orders

	// InTx runs fn in a transaction; any error from fn rolls back every write fn made
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
