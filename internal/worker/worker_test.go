package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// replayConsumer hands each payload to the handler once, then waits for cancellation
type replayConsumer struct {
	payloads [][]byte
	closed   bool
}

func (c *replayConsumer) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, p := range c.payloads {
		if err := handler(ctx, p); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *replayConsumer) Close() error {
	c.closed = true
	return nil
}

type mapMirror struct {
	mu    sync.Mutex
	stock map[int64]int
}

func newMapMirror() *mapMirror {
	return &mapMirror{stock: make(map[int64]int)}
}

func (m *mapMirror) SetStock(_ context.Context, productID int64, stock int, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = stock
	return nil
}

func (m *mapMirror) GetStock(_ context.Context, productID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stock[productID]
	return s, ok, nil
}

func (m *mapMirror) DeleteStock(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stock, productID)
	return nil
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestStockWorkerRefreshesMirror(t *testing.T) {
	repo := store.NewMemoryStore()
	ctx := context.Background()

	kept := &models.Product{Name: "Mouse", Price: decimal.RequireFromString("29.99"), Stock: 50}
	gone := &models.Product{Name: "Lamp", Price: decimal.RequireFromString("34.99"), Stock: 25}
	require.NoError(t, repo.CreateProduct(ctx, kept))
	require.NoError(t, repo.CreateProduct(ctx, gone))

	mirror := newMapMirror()
	cache := service.NewStockCache(repo, mirror)

	// state after the events below were produced
	_, err := repo.AdjustStock(ctx, kept.ID, -2)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteProduct(ctx, gone.ID))

	consumer := &replayConsumer{payloads: [][]byte{
		mustJSON(t, models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderPlaced},
			OrderID:   1,
			Items:     []models.OrderItemData{{ProductID: kept.ID, Quantity: 2}},
		}),
		mustJSON(t, models.ProductChangedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeProductChanged},
			ProductID: gone.ID,
			Deleted:   true,
		}),
	}}

	w := NewStockWorker(consumer, cache)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Start(runCtx) }()

	assert.Eventually(t, func() bool {
		s, ok, _ := mirror.GetStock(ctx, kept.ID)
		_, goneOK, _ := mirror.GetStock(ctx, gone.ID)
		return ok && s == 48 && !goneOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, w.Stop())
	assert.True(t, consumer.closed)
}
