package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"
	"github.com/wichananm65/techstore-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const productColumns = `id, name, description, price, image, category, stock, is_active, created_at, updated_at`

const (
	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1::boolean OR is_active)
		  AND ($2::text = '' OR lower(category) = lower($2::text))
		  AND ($3::text = '' OR name ILIKE '%' || $3::text || '%' OR description ILIKE '%' || $3::text || '%')
		ORDER BY created_at, id
	`
	getProductByIDQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
	`
	getProductsByIDsQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1::text[])
	`
	insertProductQuery = `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	updateProductQuery = `
		UPDATE products
		SET name = $1,
			description = $2,
			price = $3,
			image = $4,
			category = $5,
			stock = $6,
			is_active = $7,
			updated_at = $8
		WHERE id = $9
	`
	deleteProductQuery  = `DELETE FROM products WHERE id = $1`
	countProductsQuery  = `SELECT COUNT(*) FROM products`
	decrementStockQuery = `UPDATE products SET stock = stock - $1, updated_at = now() WHERE id = $2 AND stock >= $1 AND is_active`
	incrementStockQuery = `UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collect(rows *sql.Rows) ([]Product, error) {
	defer rows.Close()
	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery, f.IncludeInactive, f.Category, f.Query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.QueryContext(ctx, getProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	_, err := r.db.ExecContext(ctx, insertProductQuery,
		p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.Stock, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) (Product, error) {
	result, err := r.db.ExecContext(ctx, updateProductQuery,
		p.Name, p.Description, p.Price, p.Image, p.Category, p.Stock, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countProductsQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) AdjustStock(ctx context.Context, deltas map[string]int) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, id := range LockOrder(deltas) {
			d := deltas[id]
			var err error
			switch {
			case d < 0:
				err = DecrementStock(ctx, tx, id, -d)
			case d > 0:
				err = IncrementStock(ctx, tx, id, d)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LockOrder returns the product ids of deltas sorted, the order in which
// stock rows must be updated so concurrent batches never deadlock.
func LockOrder(deltas map[string]int) []string {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DecrementStock removes qty units only when enough stock is on hand and the
// product is active. Zero affected rows means the guard failed.
func DecrementStock(ctx context.Context, ex Execer, id string, qty int) error {
	result, err := ex.ExecContext(ctx, decrementStockQuery, qty, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
	}
	return nil
}

// IncrementStock returns qty units to the shelf.
func IncrementStock(ctx context.Context, ex Execer, id string, qty int) error {
	if _, err := ex.ExecContext(ctx, incrementStockQuery, qty, id); err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}
