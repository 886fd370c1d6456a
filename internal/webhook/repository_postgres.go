package webhook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const webhookColumns = `id, url, events, is_active, secret, created_at, updated_at`

const (
	listWebhooksQuery = `
		SELECT ` + webhookColumns + `
		FROM webhooks
		ORDER BY created_at, id
	`
	getWebhookQuery = `
		SELECT ` + webhookColumns + `
		FROM webhooks
		WHERE id = $1
	`
	listActiveForQuery = `
		SELECT ` + webhookColumns + `
		FROM webhooks
		WHERE is_active AND $1 = ANY(events)
		ORDER BY created_at, id
	`
	insertWebhookQuery = `
		INSERT INTO webhooks (` + webhookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	updateWebhookQuery = `
		UPDATE webhooks
		SET url = $1,
			events = $2,
			is_active = $3,
			secret = $4,
			updated_at = $5
		WHERE id = $6
	`
	deleteWebhookQuery = `DELETE FROM webhooks WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebhook(row rowScanner) (Webhook, error) {
	var w Webhook
	err := row.Scan(&w.ID, &w.URL, pq.Array(&w.Events), &w.IsActive, &w.Secret, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]Webhook, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	out := make([]Webhook, 0)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) List(ctx context.Context) ([]Webhook, error) {
	return r.query(ctx, listWebhooksQuery)
}

func (r *PostgresRepository) ListActiveFor(ctx context.Context, event string) ([]Webhook, error) {
	return r.query(ctx, listActiveForQuery, event)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Webhook, error) {
	w, err := scanWebhook(r.db.QueryRowContext(ctx, getWebhookQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Webhook{}, ErrNotFound
	}
	return w, err
}

func (r *PostgresRepository) Create(ctx context.Context, w Webhook) (Webhook, error) {
	_, err := r.db.ExecContext(ctx, insertWebhookQuery,
		w.ID, w.URL, pq.Array(w.Events), w.IsActive, w.Secret, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return Webhook{}, fmt.Errorf("insert webhook: %w", err)
	}
	return w, nil
}

func (r *PostgresRepository) Update(ctx context.Context, w Webhook) (Webhook, error) {
	result, err := r.db.ExecContext(ctx, updateWebhookQuery,
		w.URL, pq.Array(w.Events), w.IsActive, w.Secret, w.UpdatedAt, w.ID)
	if err != nil {
		return Webhook{}, fmt.Errorf("update webhook: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Webhook{}, ErrNotFound
	}
	return w, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteWebhookQuery, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
