package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// StockWorker keeps the stock mirror in step with the catalog by
// consuming order and product events
type StockWorker struct {
	consumer     broker.Consumer
	eventHandler *broker.EventHandler
	cache        *service.StockCache
	logger       *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker(consumer broker.Consumer, cache *service.StockCache) *StockWorker {
	w := &StockWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler.OnProductChanged(w.handleProductChanged)
	return w
}

// Start consumes events until ctx is cancelled
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker")
	if err := w.cache.SyncAll(ctx); err != nil {
		w.logger.Error("Initial stock sync failed", zap.Error(err))
	}
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return w.consumer.Close()
}

func (w *StockWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	w.logger.Debug("Refreshing stock after order",
		zap.Int64("order_id", event.OrderID),
		zap.Int("items", len(event.Items)))
	return w.cache.ApplyOrderPlaced(ctx, event)
}

func (w *StockWorker) handleProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	return w.cache.ApplyProductChanged(ctx, event)
}
