package store

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// SampleProducts returns the demo catalog loaded into an empty store
func SampleProducts() []models.Product {
	return []models.Product{
		{Name: "Laptop Gaming", Description: "High-performance gaming laptop", Price: decimal.RequireFromString("1299.99"), Stock: 10, Category: "Electronics"},
		{Name: "Wireless Mouse", Description: "Ergonomic wireless mouse", Price: decimal.RequireFromString("29.99"), Stock: 50, Category: "Electronics"},
		{Name: "Coffee Maker", Description: "Automatic coffee machine", Price: decimal.RequireFromString("89.99"), Stock: 15, Category: "Home"},
		{Name: "T-shirt Casual", Description: "100% cotton t-shirt", Price: decimal.RequireFromString("19.99"), Stock: 100, Category: "Fashion"},
		{Name: "Desk Lamp", Description: "LED desk lamp with dimmer", Price: decimal.RequireFromString("34.99"), Stock: 25, Category: "Home"},
		{Name: "Bluetooth Speaker", Description: "Portable waterproof speaker", Price: decimal.RequireFromString("59.99"), Stock: 30, Category: "Electronics"},
	}
}

// SeedSampleData loads SampleProducts when the catalog is empty and
// returns the number of products created
func SeedSampleData(ctx context.Context, catalog Catalog) (int, error) {
	existing, err := catalog.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	products := SampleProducts()
	for i := range products {
		if err := catalog.CreateProduct(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("failed to seed %q: %w", products[i].Name, err)
		}
	}
	return len(products), nil
}
