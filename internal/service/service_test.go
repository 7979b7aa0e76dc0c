package service

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fixture struct {
	repo      *store.MemoryStore
	publisher *mockPublisher
	carts     *CartService
	checkout  *CheckoutService
	catalog   *CatalogService
	orders    *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := store.NewMemoryStore()
	locker := NewLocalLocker(defaultTestLockWait)
	pub := &mockPublisher{}
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Maybe()
	pub.On("PublishProductChanged", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{
		repo:      repo,
		publisher: pub,
		carts:     NewCartService(repo, locker, false),
		checkout:  NewCheckoutService(repo, locker, pub),
		catalog:   NewCatalogService(repo, pub),
		orders:    NewOrderService(repo),
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "Test"}
	require.NoError(t, f.repo.CreateProduct(context.Background(), p))
	return p
}

func (f *fixture) stockOf(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}
