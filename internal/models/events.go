package models

import "time"

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeProductChanged = "PRODUCT_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID      int64           `json:"order_id"`
	SessionID    string          `json:"session_id"`
	CustomerName string          `json:"customer_name"`
	TotalAmount  string          `json:"total_amount"`
	Items        []OrderItemData `json:"items"`
}

// ProductChangedEvent published when an admin edits, restocks or deletes a product
type ProductChangedEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
	Deleted   bool  `json:"deleted"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}
