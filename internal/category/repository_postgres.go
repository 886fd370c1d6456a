package category

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepository implements Repository using Postgres.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const listCategoriesQuery = `
	SELECT category, COUNT(*)
	FROM products
	WHERE is_active AND category <> ''
	GROUP BY category
	ORDER BY category
	LIMIT $1
`

// List returns the distinct categories of active products.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Name, &item.ProductCount); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
