package service

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogCreateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		product models.Product
	}{
		{"blank name", models.Product{Name: "  ", Price: decimal.NewFromInt(1)}},
		{"negative price", models.Product{Name: "X", Price: decimal.NewFromInt(-1)}},
		{"negative stock", models.Product{Name: "X", Price: decimal.NewFromInt(1), Stock: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			assert.ErrorIs(t, f.catalog.Create(ctx, &p), models.ErrInvalidInput)
		})
	}

	p := &models.Product{Name: " Desk Lamp ", Price: decimal.RequireFromString("34.99"), Stock: 25, Category: "Home"}
	require.NoError(t, f.catalog.Create(ctx, p))
	assert.Equal(t, "Desk Lamp", p.Name)
	assert.NotZero(t, p.ID)
}

func TestCatalogUpdateKeepsUnsetFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Coffee Maker", "89.99", 15)

	stock := 20
	updated, err := f.catalog.Update(ctx, p.ID, ProductUpdate{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, "Coffee Maker", updated.Name)
	assert.True(t, decimal.RequireFromString("89.99").Equal(updated.Price))
	assert.Equal(t, 20, updated.Stock)

	bad := -5
	_, err = f.catalog.Update(ctx, p.ID, ProductUpdate{Stock: &bad})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, 20, f.stockOf(t, p.ID))

	_, err = f.catalog.Update(ctx, 999, ProductUpdate{Stock: &stock})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalogDeleteDropsCartLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Shirt", "19.99", 10)
	_, err := f.carts.Add(ctx, "s1", p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.catalog.Delete(ctx, p.ID))

	cart, err := f.carts.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = f.checkout.Checkout(ctx, CheckoutRequest{SessionID: "s1", CustomerName: "Ann"})
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	assert.ErrorIs(t, f.catalog.Delete(ctx, p.ID), models.ErrNotFound)
}

func TestCatalogSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := store.SeedSampleData(ctx, f.repo)
	require.NoError(t, err)

	found, err := f.catalog.Search(ctx, models.ProductFilter{Name: " laptop "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Laptop Gaming", found[0].Name)

	min, max := decimal.NewFromInt(100), decimal.NewFromInt(10)
	_, err = f.catalog.Search(ctx, models.ProductFilter{MinPrice: &min, MaxPrice: &max})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCatalogPublishesProductChanged(t *testing.T) {
	repo := store.NewMemoryStore()
	pub := &mockPublisher{}
	catalog := NewCatalogService(repo, pub)
	ctx := context.Background()

	p := &models.Product{Name: "Mouse", Price: decimal.RequireFromString("29.99"), Stock: 5}
	pub.On("PublishProductChanged", mock.Anything, mock.MatchedBy(func(e *models.ProductChangedEvent) bool {
		return e.EventType == models.EventTypeProductChanged && !e.Deleted
	})).Return(nil).Twice()
	pub.On("PublishProductChanged", mock.Anything, mock.MatchedBy(func(e *models.ProductChangedEvent) bool {
		return e.Deleted
	})).Return(nil).Once()

	require.NoError(t, catalog.Create(ctx, p))
	stock, err := catalog.AdjustStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, stock)
	require.NoError(t, catalog.Delete(ctx, p.ID))

	pub.AssertExpectations(t)
}

func TestCatalogAdjustStockRefusesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", "34.99", 2)

	_, err := f.catalog.AdjustStock(ctx, p.ID, -3)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 2, f.stockOf(t, p.ID))
}
