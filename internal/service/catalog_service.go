package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles product lookups and admin management
type CatalogService struct {
	repo      store.Repository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo store.Repository, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		repo:      repo,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ProductUpdate carries the fields an admin changes. Nil fields keep their value.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
}

// Get retrieves a product by ID
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Get")
	defer span.End()

	return s.repo.GetProduct(ctx, id)
}

// Search lists the products matching filter, ordered by id
func (s *CatalogService) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Search")
	defer span.End()

	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("min price above max price: %w", models.ErrInvalidInput)
	}

	filter.Name = strings.TrimSpace(filter.Name)
	filter.Category = strings.TrimSpace(filter.Category)
	return s.repo.ListProducts(ctx, filter)
}

// Create adds a product to the catalog
func (s *CatalogService) Create(ctx context.Context, product *models.Product) (err error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Create")
	defer func() { util.EndSpan(span, err) }()

	product.Name = strings.TrimSpace(product.Name)
	if err := validateProduct(product); err != nil {
		return err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	s.publishChanged(ctx, product.ID, false)
	return nil
}

// Update applies the set fields of upd to a product. The product row is
// locked for the read-modify-write so a concurrent checkout cannot be lost.
func (s *CatalogService) Update(ctx context.Context, id int64, upd ProductUpdate) (product *models.Product, err error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Update")
	defer func() { util.EndSpan(span, err) }()

	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return err
		}

		upd.apply(p)
		if err := validateProduct(p); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id))
	s.publishChanged(ctx, id, false)
	return product, nil
}

// Delete removes a product. Cart lines referencing it go with it; orders
// keep their own copy of the product's name and price.
func (s *CatalogService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Delete")
	defer func() { util.EndSpan(span, err) }()

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	s.publishChanged(ctx, id, true)
	return nil
}

// AdjustStock restocks (delta > 0) or writes off (delta < 0) units and
// returns the new stock level
func (s *CatalogService) AdjustStock(ctx context.Context, id int64, delta int) (stock int, err error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.AdjustStock")
	defer func() { util.EndSpan(span, err) }()

	stock, err = s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Stock adjusted",
		zap.Int64("product_id", id),
		zap.Int("delta", delta),
		zap.Int("stock", stock))
	s.publishChanged(ctx, id, false)
	return stock, nil
}

func (s *CatalogService) publishChanged(ctx context.Context, id int64, deleted bool) {
	event := &models.ProductChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductChanged,
			Timestamp: time.Now(),
		},
		ProductID: id,
		Deleted:   deleted,
	}

	if err := s.publisher.PublishProductChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductChanged event",
			zap.Int64("product_id", id),
			zap.Error(err))
	}
}

func (u ProductUpdate) apply(p *models.Product) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("product name is required: %w", models.ErrInvalidInput)
	case p.Price.IsNegative():
		return fmt.Errorf("price %s is negative: %w", p.Price, models.ErrInvalidInput)
	case p.Stock < 0:
		return fmt.Errorf("stock %d is negative: %w", p.Stock, models.ErrInvalidInput)
	}
	return nil
}
