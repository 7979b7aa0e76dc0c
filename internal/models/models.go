package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Category    string          `db:"category" json:"category"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`

	// StockVersion grows with every write to the row; mirrors order by it
	StockVersion int64 `db:"stock_version" json:"-"`
}

// InStock reports whether at least one unit can be purchased
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// CartItem is one (session, product) line of an active cart
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	SessionID string    `db:"session_id" json:"session_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartLine is a cart item joined with the current state of its product
type CartLine struct {
	ItemID        int64           `db:"item_id" json:"item_id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	ProductName   string          `db:"product_name" json:"product_name"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	Stock         int             `db:"stock" json:"stock"`
	Quantity      int             `db:"quantity" json:"quantity"`
	SessionID     string          `db:"session_id" json:"-"`
	ItemCreatedAt time.Time       `db:"item_created_at" json:"-"`
}

// Subtotal returns unit price times quantity
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the listing of a session's cart
type Cart struct {
	SessionID string          `json:"session_id"`
	Lines     []CartLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
}

// CartTotal sums the subtotals of lines
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Order represents a completed checkout
type Order struct {
	ID             int64           `db:"id" json:"id"`
	CustomerName   string          `db:"customer_name" json:"customer_name"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status         string          `db:"status" json:"status"`
	IdempotencyKey *string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Items          []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem is a by-value snapshot of a cart line taken at checkout
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity    int             `db:"quantity" json:"quantity"`
}

// Order statuses
const (
	OrderStatusCompleted = "completed"
)

// ProductFilter narrows a catalog search. Zero fields do not filter.
type ProductFilter struct {
	Name     string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Matches reports whether p satisfies every set field of f
func (f ProductFilter) Matches(p *Product) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}
