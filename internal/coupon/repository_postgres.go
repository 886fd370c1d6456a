package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wichananm65/techstore-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const couponColumns = `id, code, discount, type, is_active, expires_at, created_at, updated_at`

const (
	listCouponsQuery = `
		SELECT ` + couponColumns + `
		FROM coupons
		ORDER BY created_at, id
	`
	getCouponByIDQuery = `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE id = $1
	`
	getCouponByCodeQuery = `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = $1
	`
	insertCouponQuery = `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	updateCouponQuery = `
		UPDATE coupons
		SET code = $1,
			discount = $2,
			type = $3,
			is_active = $4,
			expires_at = $5,
			updated_at = $6
		WHERE id = $7
	`
	deleteCouponQuery = `DELETE FROM coupons WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (Coupon, error) {
	var (
		c       Coupon
		expires sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Discount, &c.Type, &c.IsActive, &expires, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Coupon{}, err
	}
	if expires.Valid {
		t := expires.Time
		c.ExpiresAt = &t
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Coupon, error) {
	rows, err := r.db.QueryContext(ctx, listCouponsQuery)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	out := make([]Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) one(ctx context.Context, q string, arg any) (Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Coupon, error) {
	return r.one(ctx, getCouponByIDQuery, id)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (Coupon, error) {
	return r.one(ctx, getCouponByCodeQuery, NormalizeCode(code))
}

func (r *PostgresRepository) Create(ctx context.Context, c Coupon) (Coupon, error) {
	_, err := r.db.ExecContext(ctx, insertCouponQuery,
		c.ID, c.Code, c.Discount, c.Type, c.IsActive, c.ExpiresAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Coupon{}, ErrCodeExists
		}
		return Coupon{}, fmt.Errorf("insert coupon: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c Coupon) (Coupon, error) {
	result, err := r.db.ExecContext(ctx, updateCouponQuery,
		c.Code, c.Discount, c.Type, c.IsActive, c.ExpiresAt, c.UpdatedAt, c.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Coupon{}, ErrCodeExists
		}
		return Coupon{}, fmt.Errorf("update coupon: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteCouponQuery, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
