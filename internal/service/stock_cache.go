package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// StockMirror is a fast read-side copy of product stock levels. SetStock
// must ignore a version older than the one already mirrored.
type StockMirror interface {
	SetStock(ctx context.Context, productID int64, stock int, version int64) error
	GetStock(ctx context.Context, productID int64) (int, bool, error)
	DeleteStock(ctx context.Context, productID int64) error
}

// Stock level sources
const (
	StockSourceCache    = "cache"
	StockSourceDatabase = "database"
)

// StockLevel is a product's stock as served to readers
type StockLevel struct {
	ProductID int64  `json:"product_id"`
	Stock     int    `json:"stock"`
	Source    string `json:"source"`
}

// StockCache serves stock reads from the mirror and keeps it fresh. The
// database stays authoritative: checkout never reads the mirror.
type StockCache struct {
	catalog store.Catalog
	mirror  StockMirror
	logger  *zap.Logger
}

// NewStockCache creates a new stock cache
func NewStockCache(catalog store.Catalog, mirror StockMirror) *StockCache {
	return &StockCache{
		catalog: catalog,
		mirror:  mirror,
		logger:  util.GetLogger(),
	}
}

// Stock returns the mirrored level, falling back to the database (and
// repopulating the mirror) on a miss or a mirror failure
func (c *StockCache) Stock(ctx context.Context, productID int64) (*StockLevel, error) {
	ctx, span := util.StartSpan(ctx, "StockCache.Stock")
	defer span.End()

	stock, ok, err := c.mirror.GetStock(ctx, productID)
	if err != nil {
		c.logger.Warn("Stock mirror read failed, falling back to DB",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
	if err == nil && ok {
		return &StockLevel{ProductID: productID, Stock: stock, Source: StockSourceCache}, nil
	}

	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	_ = c.store(ctx, product)

	return &StockLevel{ProductID: productID, Stock: product.Stock, Source: StockSourceDatabase}, nil
}

// Refresh copies the current database stock of each product into the
// mirror. Products that no longer exist are dropped from it.
func (c *StockCache) Refresh(ctx context.Context, productIDs ...int64) error {
	ctx, span := util.StartSpan(ctx, "StockCache.Refresh")
	defer span.End()

	var errs []error
	for _, id := range productIDs {
		product, err := c.catalog.GetProduct(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			errs = append(errs, c.Forget(ctx, id))
			continue
		}
		if err != nil {
			util.StockCacheRefreshTotal.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("failed to read product %d: %w", id, err))
			continue
		}
		errs = append(errs, c.store(ctx, product))
	}
	return errors.Join(errs...)
}

// Forget drops a product from the mirror
func (c *StockCache) Forget(ctx context.Context, productID int64) error {
	if err := c.mirror.DeleteStock(ctx, productID); err != nil {
		util.StockCacheRefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to drop stock mirror for product %d: %w", productID, err)
	}
	util.StockCacheRefreshTotal.WithLabelValues("deleted").Inc()
	return nil
}

// SyncAll mirrors every product in the catalog
func (c *StockCache) SyncAll(ctx context.Context) error {
	c.logger.Info("Starting stock sync to mirror")

	products, err := c.catalog.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for i := range products {
		product := &products[i]
		if err := c.store(ctx, product); err != nil {
			c.logger.Error("Failed to mirror stock",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	c.logger.Info("Stock sync completed", zap.Int("count", len(products)))
	return nil
}

// ApplyOrderPlaced refreshes every product an order took stock from
func (c *StockCache) ApplyOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ids := make([]int64, 0, len(event.Items))
	for _, item := range event.Items {
		ids = append(ids, item.ProductID)
	}
	return c.Refresh(ctx, ids...)
}

// ApplyProductChanged refreshes or drops the changed product
func (c *StockCache) ApplyProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	if event.Deleted {
		return c.Forget(ctx, event.ProductID)
	}
	return c.Refresh(ctx, event.ProductID)
}

// store writes the level read from product together with that row's
// version, so a slow writer holding an old read cannot overwrite a newer one
func (c *StockCache) store(ctx context.Context, product *models.Product) error {
	if err := c.mirror.SetStock(ctx, product.ID, product.Stock, product.StockVersion); err != nil {
		util.StockCacheRefreshTotal.WithLabelValues("error").Inc()
		c.logger.Warn("Failed to write stock mirror",
			zap.Int64("product_id", product.ID),
			zap.Error(err))
		return err
	}
	util.StockCacheRefreshTotal.WithLabelValues("ok").Inc()
	return nil
}

// SyncingPublisher keeps the stock mirror fresh in process before passing
// events on. It stands in for the stock worker when no broker is configured.
type SyncingPublisher struct {
	next   EventPublisher
	cache  *StockCache
	logger *zap.Logger
}

// NewSyncingPublisher wraps next so every published event first updates cache
func NewSyncingPublisher(next EventPublisher, cache *StockCache) *SyncingPublisher {
	return &SyncingPublisher{
		next:   next,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

func (p *SyncingPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if err := p.cache.ApplyOrderPlaced(ctx, event); err != nil {
		p.logger.Warn("Failed to refresh stock mirror after order",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
	}
	return p.next.PublishOrderPlaced(ctx, event)
}

func (p *SyncingPublisher) PublishProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	if err := p.cache.ApplyProductChanged(ctx, event); err != nil {
		p.logger.Warn("Failed to refresh stock mirror after product change",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
	}
	return p.next.PublishProductChanged(ctx, event)
}
