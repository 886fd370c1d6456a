package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listAddressesQuery = `
		SELECT id, user_id, label, line, phone, created_at, updated_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	getAddressQuery = `
		SELECT id, user_id, label, line, phone, created_at, updated_at
		FROM addresses
		WHERE user_id = $1 AND id = $2
	`
	insertAddressQuery = `
		INSERT INTO addresses (id, user_id, label, line, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	updateAddressQuery = `
		UPDATE addresses
		SET label = $1, line = $2, phone = $3, updated_at = $4
		WHERE user_id = $5 AND id = $6
	`
	deleteAddressQuery = `DELETE FROM addresses WHERE user_id = $1 AND id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.Line, &a.Phone, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx, listAddressesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	out := make([]Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx, getAddressQuery, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepository) Create(ctx context.Context, a Address) (Address, error) {
	if _, err := r.db.ExecContext(ctx, insertAddressQuery, a.ID, a.UserID, a.Label, a.Line, a.Phone, a.CreatedAt, a.UpdatedAt); err != nil {
		return Address{}, fmt.Errorf("insert address: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a Address) (Address, error) {
	result, err := r.db.ExecContext(ctx, updateAddressQuery, a.Label, a.Line, a.Phone, a.UpdatedAt, a.UserID, a.ID)
	if err != nil {
		return Address{}, fmt.Errorf("update address: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Address{}, ErrNotFound
	}
	return a, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, deleteAddressQuery, userID, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
