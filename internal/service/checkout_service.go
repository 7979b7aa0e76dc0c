package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest represents a request to turn a session's cart into an order
type CheckoutRequest struct {
	SessionID      string `json:"-"`
	CustomerName   string `json:"customer_name"`
	IdempotencyKey string `json:"-"`
}

// CheckoutService converts carts into orders
type CheckoutService struct {
	repo      store.Repository
	locker    Locker
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(repo store.Repository, locker Locker, publisher EventPublisher) *CheckoutService {
	return &CheckoutService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Checkout validates the whole cart against stock and, only if every line
// fits, decrements stock, records the order and empties the cart in one
// transaction. A repeated IdempotencyKey returns the order it created.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer func() { util.EndSpan(span, err) }()

	if err := validateSession(req.SessionID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(req.SessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if existing, err := s.replay(ctx, req.IdempotencyKey); err != nil || existing != nil {
		return existing, err
	}

	start := time.Now()
	order, err = s.commit(ctx, req)
	util.CheckoutLatency.Observe(time.Since(start).Seconds())

	if errors.Is(err, models.ErrDuplicateOrder) {
		// Same key committed by another session between replay and commit
		if existing, rerr := s.replay(ctx, req.IdempotencyKey); rerr == nil && existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues(util.FailureReason(err)).Inc()
		s.logger.Info("Checkout rejected",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return nil, err
	}

	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	util.OrdersPlacedTotal.Inc()
	util.UnitsSoldTotal.Add(float64(units))

	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("session_id", req.SessionID),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	if err := s.publisher.PublishOrderPlaced(ctx, orderPlacedEvent(req.SessionID, order)); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	return order, nil
}

func (s *CheckoutService) replay(ctx context.Context, key string) (*models.Order, error) {
	if key == "" {
		return nil, nil
	}

	existing, err := s.repo.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		util.CheckoutReplayedTotal.Inc()
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", key),
			zap.Int64("order_id", existing.ID))
	}
	return existing, nil
}

func (s *CheckoutService) commit(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	customer := strings.TrimSpace(req.CustomerName)

	var order *models.Order
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		lines, err := tx.LockCartLines(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("session %s: %w", req.SessionID, models.ErrEmptyCart)
		}
		if customer == "" {
			return fmt.Errorf("customer name is required: %w", models.ErrInvalidInput)
		}

		if err := validateStock(lines); err != nil {
			return err
		}

		order = &models.Order{
			CustomerName: customer,
			TotalAmount:  models.CartTotal(lines),
			Status:       models.OrderStatusCompleted,
			Items:        make([]models.OrderItem, 0, len(lines)),
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			order.IdempotencyKey = &key
		}

		for _, line := range lines {
			if _, err := tx.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
				return err
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
			})
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		_, err = tx.ClearCart(ctx, req.SessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// validateStock checks every line before anything is written
func validateStock(lines []models.CartLine) error {
	for _, line := range lines {
		if line.Stock < line.Quantity {
			return &models.StockError{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   line.Stock,
			}
		}
	}
	return nil
}

func orderPlacedEvent(sessionID string, order *models.Order) *models.OrderPlacedEvent {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	return &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:      order.ID,
		SessionID:    sessionID,
		CustomerName: order.CustomerName,
		TotalAmount:  order.TotalAmount.StringFixed(2),
		Items:        items,
	}
}
