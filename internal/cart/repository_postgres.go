package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery = `
		SELECT product_id, quantity, updated_at
		FROM carts
		WHERE user_id = $1
		ORDER BY updated_at, product_id
	`
	addCartLineQuery = `
		INSERT INTO carts (user_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = carts.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	setCartLineQuery = `
		INSERT INTO carts (user_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	removeCartLineQuery     = `DELETE FROM carts WHERE user_id = $1 AND product_id = $2`
	clearCartQuery          = `DELETE FROM carts WHERE user_id = $1`
	removeCartProductsQuery = `DELETE FROM carts WHERE user_id = $1 AND product_id = ANY($2::text[])`
	listStaleCartsQuery     = `
		SELECT user_id, product_id, quantity, updated_at
		FROM carts
		WHERE user_id IN (
			SELECT user_id FROM carts GROUP BY user_id HAVING MAX(updated_at) < $1
		)
		ORDER BY user_id, updated_at, product_id
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (Cart, error) {
	rows, err := r.db.QueryContext(ctx, getCartQuery, userID)
	if err != nil {
		return Cart{}, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	c := Cart{UserID: userID, Lines: []Line{}}
	for rows.Next() {
		var (
			l  Line
			at time.Time
		)
		if err := rows.Scan(&l.ProductID, &l.Quantity, &at); err != nil {
			return Cart{}, err
		}
		c.Lines = append(c.Lines, l)
		if at.After(c.UpdatedAt) {
			c.UpdatedAt = at
		}
	}
	return c, rows.Err()
}

func (r *PostgresRepository) Add(ctx context.Context, userID, productID string, qty int, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, addCartLineQuery, userID, productID, qty, at); err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Set(ctx context.Context, userID, productID string, qty int, at time.Time) error {
	if qty <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	if _, err := r.db.ExecContext(ctx, setCartLineQuery, userID, productID, qty, at); err != nil {
		return fmt.Errorf("set cart line: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID string) error {
	if _, err := r.db.ExecContext(ctx, removeCartLineQuery, userID, productID); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, clearCartQuery, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveProducts(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, removeCartProductsQuery, userID, pq.Array(productIDs)); err != nil {
		return fmt.Errorf("remove cart products: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListStale(ctx context.Context, cutoff time.Time) ([]Cart, error) {
	rows, err := r.db.QueryContext(ctx, listStaleCartsQuery, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale carts: %w", err)
	}
	defer rows.Close()

	out := make([]Cart, 0)
	for rows.Next() {
		var (
			userID string
			l      Line
			at     time.Time
		)
		if err := rows.Scan(&userID, &l.ProductID, &l.Quantity, &at); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].UserID != userID {
			out = append(out, Cart{UserID: userID})
		}
		cur := &out[len(out)-1]
		cur.Lines = append(cur.Lines, l)
		if at.After(cur.UpdatedAt) {
			cur.UpdatedAt = at
		}
	}
	return out, rows.Err()
}
