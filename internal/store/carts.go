package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const foreignKeyViolation = "23503"

const cartLinesQuery = `
	SELECT c.id AS item_id, c.product_id, p.name AS product_name, p.price AS unit_price,
		p.stock, c.quantity, c.session_id, c.created_at AS item_created_at
	FROM cart_items c
	JOIN products p ON p.id = c.product_id`

// AddCartItem inserts the line or merges quantity into the existing one.
// The unique (session_id, product_id) constraint makes the merge atomic.
func (s queries) AddCartItem(ctx context.Context, sessionID string, productID int64, quantity int) (*models.CartItem, error) {
	query := `
		INSERT INTO cart_items (product_id, quantity, session_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING *`

	var item models.CartItem
	err := sqlx.GetContext(ctx, s.q, &item, query, productID, quantity, sessionID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		// product deleted since the caller looked it up
		return nil, models.ProductNotFound(productID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetCartItem retrieves a cart item by ID
func (s queries) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	var item models.CartItem
	err := sqlx.GetContext(ctx, s.q, &item, "SELECT * FROM cart_items WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.CartItemNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetCartItemQuantity replaces the quantity of a cart item
func (s queries) SetCartItemQuantity(ctx context.Context, id int64, quantity int) error {
	res, err := s.q.ExecContext(ctx, "UPDATE cart_items SET quantity = $1 WHERE id = $2", quantity, id)
	if err != nil {
		return err
	}
	return expectOne(res, models.CartItemNotFound(id))
}

// DeleteCartItem removes a cart item
func (s queries) DeleteCartItem(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOne(res, models.CartItemNotFound(id))
}

// ClearCart removes every item of the session and reports how many were removed
func (s queries) ClearCart(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM cart_items WHERE session_id = $1", sessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListCartLines retrieves the session's cart joined with current product state
func (s queries) ListCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := sqlx.SelectContext(ctx, s.q, &lines, cartLinesQuery+`
		WHERE c.session_id = $1
		ORDER BY c.id`, sessionID)
	return lines, err
}

func sortByInsertion(lines []models.CartLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })
}
