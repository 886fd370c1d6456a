package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent so Migrate can
// run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		avatar TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		needs_password_change BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		label TEXT NOT NULL DEFAULT '',
		line TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS addresses_user_id_idx ON addresses (user_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		image TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount NUMERIC(12,2) NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('percentage', 'fixed')),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subtotal NUMERIC(12,2) NOT NULL,
		discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL,
		payment_method TEXT NOT NULL,
		installments INT NOT NULL DEFAULT 1,
		address TEXT NOT NULL,
		coupon_code TEXT,
		status TEXT NOT NULL,
		idempotency_key TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_idempotency_key ON orders (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		price NUMERIC(12,2) NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		events TEXT[] NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		secret TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the storefront tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
