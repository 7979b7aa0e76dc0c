package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetProduct retrieves a product by ID
func (s queries) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, s.q, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ProductNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves the products matching filter, ordered by id
func (s queries) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Name != "" {
		conds = append(conds, "name ILIKE '%' || "+arg(escapeLike(filter.Name))+" || '%'")
	}
	if filter.Category != "" {
		conds = append(conds, "LOWER(category) = LOWER("+arg(filter.Category)+")")
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*filter.MaxPrice))
	}

	query := "SELECT * FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	products := []models.Product{}
	err := sqlx.SelectContext(ctx, s.q, &products, query, args...)
	return products, err
}

// CreateProduct inserts a product and fills its id and creation time
func (s queries) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, stock_version`

	return s.q.QueryRowxContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock, product.Category,
	).Scan(&product.ID, &product.CreatedAt, &product.StockVersion)
}

// UpdateProduct overwrites the mutable fields of a product and bumps its stock version
func (s queries) UpdateProduct(ctx context.Context, product *models.Product) error {
	err := sqlx.GetContext(ctx, s.q, &product.StockVersion, `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category = $5,
		    stock_version = stock_version + 1
		WHERE id = $6
		RETURNING stock_version`,
		product.Name, product.Description, product.Price, product.Stock, product.Category, product.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProductNotFound(product.ID)
	}
	return err
}

// DeleteProduct removes a product; cart lines referencing it cascade
func (s queries) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOne(res, models.ProductNotFound(id))
}

// AdjustStock applies delta with a compare-and-update so stock never goes negative
func (s queries) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	var stock int
	err := sqlx.GetContext(ctx, s.q, &stock,
		`UPDATE products SET stock = stock + $1, stock_version = stock_version + 1
		WHERE id = $2 AND stock + $1 >= 0 RETURNING stock`,
		delta, id)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return 0, err
	}
	return 0, &models.StockError{
		ProductID:   id,
		ProductName: product.Name,
		Requested:   -delta,
		Available:   product.Stock,
	}
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
