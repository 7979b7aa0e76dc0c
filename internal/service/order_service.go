package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// OrderService reads the order ledger
type OrderService struct {
	orders store.Orders
}

// NewOrderService creates a new order service
func NewOrderService(orders store.Orders) *OrderService {
	return &OrderService{orders: orders}
}

// GetOrder retrieves an order and its items by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.orders.GetOrder(ctx, orderID)
}

// ListOrders retrieves every order, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	return s.orders.ListOrders(ctx)
}
