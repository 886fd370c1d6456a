package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/wichananm65/techstore-backend/internal/database"
	"github.com/wichananm65/techstore-backend/internal/product"
)

type PostgresRepository struct {
	db *sql.DB
}

const orderColumns = `id, user_id, subtotal, discount, total, payment_method, installments, address, coupon_code, status, idempotency_key, created_at, updated_at`

const (
	getOrderQuery      = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByKeyQuery = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND idempotency_key = $2`
	listUserOrders     = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	listOrdersQuery    = `SELECT ` + orderColumns + ` FROM orders WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`
	insertOrderQuery   = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	insertItemQuery = `
		INSERT INTO order_items (order_id, product_id, name, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	listItemsQuery = `
		SELECT order_id, product_id, name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1::text[])
		ORDER BY order_id, product_id
	`
	updateStatusQuery = `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o          Order
		couponCode sql.NullString
		key        sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.Discount, &o.Total, &o.PaymentMethod, &o.Installments,
		&o.Address, &couponCode, &o.Status, &key, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.CouponCode = couponCode.String
	o.IdempotencyKey = key.String
	o.Items = []Item{}
	return o, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func getOrder(ctx context.Context, q querier, query string, args ...any) (Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	orders := []Order{o}
	if err := loadItems(ctx, q, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func listOrders(ctx context.Context, q querier, query string, args ...any) ([]Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills Items for every order with a single query.
func loadItems(ctx context.Context, q querier, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
	}

	rows, err := q.QueryContext(ctx, listItemsQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return err
		}
		if i, ok := idx[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, o Order) (Order, bool, error) {
	var (
		replay Order
		found  bool
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if o.IdempotencyKey != "" {
			prev, err := getOrder(ctx, tx, getOrderByKeyQuery, o.UserID, o.IdempotencyKey)
			if err == nil {
				replay, found = prev, true
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		take := make(map[string]int, len(o.Items))
		for _, it := range o.Items {
			take[it.ProductID] += it.Quantity
		}
		for _, id := range product.LockOrder(take) {
			if err := product.DecrementStock(ctx, tx, id, take[id]); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, insertOrderQuery,
			o.ID, o.UserID, o.Subtotal, o.Discount, o.Total, o.PaymentMethod, o.Installments, o.Address,
			nullable(o.CouponCode), o.Status, nullable(o.IdempotencyKey), o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, it := range o.Items {
			if _, err := tx.ExecContext(ctx, insertItemQuery, o.ID, it.ProductID, it.Name, it.Quantity, it.Price); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		// a concurrent request with the same key committed first
		if o.IdempotencyKey != "" && database.IsUniqueViolation(err) {
			if prev, gerr := getOrder(ctx, r.db, getOrderByKeyQuery, o.UserID, o.IdempotencyKey); gerr == nil {
				return prev, false, nil
			}
		}
		return Order{}, false, err
	}
	if found {
		return replay, false, nil
	}
	return o, true, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	return getOrder(ctx, r.db, getOrderQuery, id)
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (Order, error) {
	return getOrder(ctx, r.db, getOrderByKeyQuery, userID, key)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return listOrders(ctx, r.db, listUserOrders, userID)
}

func (r *PostgresRepository) List(ctx context.Context, status string) ([]Order, error) {
	return listOrders(ctx, r.db, listOrdersQuery, status)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, o Order, status string, at time.Time) (Order, error) {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, updateStatusQuery, status, at, o.ID, o.Status)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrInvalidTransition
		}
		if status != StatusCancelled {
			return nil
		}
		back := o.restock()
		for _, id := range product.LockOrder(back) {
			if err := product.IncrementStock(ctx, tx, id, back[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	o.Status = status
	o.UpdatedAt = at
	return o, nil
}
