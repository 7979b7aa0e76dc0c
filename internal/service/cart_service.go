package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartService handles cart mutations. All writes for one session run
// under that session's lock.
type CartService struct {
	repo        store.Repository
	locker      Locker
	strictMerge bool
	logger      *zap.Logger
}

// NewCartService creates a new cart service. With strictMerge set, adding
// to an existing line also checks the merged quantity against stock.
func NewCartService(repo store.Repository, locker Locker, strictMerge bool) *CartService {
	return &CartService{
		repo:        repo,
		locker:      locker,
		strictMerge: strictMerge,
		logger:      util.GetLogger(),
	}
}

// Add puts quantity units of a product into the session's cart, merging
// into the existing line for that product if there is one
func (s *CartService) Add(ctx context.Context, sessionID string, productID int64, quantity int) (item *models.CartItem, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.Add")
	defer func() { util.EndSpan(span, err) }()
	defer func() { s.record("add", err) }()

	if err := validateSession(sessionID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}
	if quantity > product.Stock {
		return nil, &models.StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	if s.strictMerge {
		inCart, err := s.quantityInCart(ctx, sessionID, productID)
		if err != nil {
			return nil, err
		}
		if inCart+quantity > product.Stock {
			return nil, &models.StockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   inCart + quantity,
				Available:   product.Stock,
			}
		}
	}

	item, err = s.repo.AddCartItem(ctx, sessionID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.logger.Debug("Cart item added",
		zap.String("session_id", sessionID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", item.Quantity))
	return item, nil
}

// Update sets the quantity of one of the session's cart items
func (s *CartService) Update(ctx context.Context, sessionID string, itemID int64, quantity int) (err error) {
	ctx, span := util.StartSpan(ctx, "CartService.Update")
	defer func() { util.EndSpan(span, err) }()
	defer func() { s.record("update", err) }()

	if err := validateSession(sessionID); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(sessionID))
	if err != nil {
		return err
	}
	defer unlock()

	item, err := s.ownedItem(ctx, sessionID, itemID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}

	product, err := s.repo.GetProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if quantity > product.Stock {
		return &models.StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	return s.repo.SetCartItemQuantity(ctx, itemID, quantity)
}

// Remove deletes one of the session's cart items
func (s *CartService) Remove(ctx context.Context, sessionID string, itemID int64) (err error) {
	ctx, span := util.StartSpan(ctx, "CartService.Remove")
	defer func() { util.EndSpan(span, err) }()
	defer func() { s.record("remove", err) }()

	if err := validateSession(sessionID); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(sessionID))
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.ownedItem(ctx, sessionID, itemID); err != nil {
		return err
	}
	return s.repo.DeleteCartItem(ctx, itemID)
}

// Clear empties the session's cart. Clearing an empty cart is not an error.
func (s *CartService) Clear(ctx context.Context, sessionID string) (removed int64, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer func() { util.EndSpan(span, err) }()
	defer func() { s.record("clear", err) }()

	if err := validateSession(sessionID); err != nil {
		return 0, err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(sessionID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	return s.repo.ClearCart(ctx, sessionID)
}

// List returns the session's cart as it is now, lines in the order they were added
func (s *CartService) List(ctx context.Context, sessionID string) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.List")
	defer span.End()

	if err := validateSession(sessionID); err != nil {
		return nil, err
	}

	lines, err := s.repo.ListCartLines(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}

	return &models.Cart{
		SessionID: sessionID,
		Lines:     lines,
		Total:     models.CartTotal(lines),
	}, nil
}

// ownedItem hides items of other sessions behind NotFound
func (s *CartService) ownedItem(ctx context.Context, sessionID string, itemID int64) (*models.CartItem, error) {
	item, err := s.repo.GetCartItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SessionID != sessionID {
		return nil, models.CartItemNotFound(itemID)
	}
	return item, nil
}

func (s *CartService) quantityInCart(ctx context.Context, sessionID string, productID int64) (int, error) {
	lines, err := s.repo.ListCartLines(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity, nil
		}
	}
	return 0, nil
}

func (s *CartService) record(op string, err error) {
	if err != nil {
		util.CartRejectionsTotal.WithLabelValues(op, util.FailureReason(err)).Inc()
		return
	}
	util.CartMutationsTotal.WithLabelValues(op).Inc()
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required: %w", models.ErrInvalidInput)
	}
	return nil
}
