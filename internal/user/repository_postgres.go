package user

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

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, email, password_hash, phone, birth_date, avatar, is_admin, needs_password_change, created_at, updated_at`

const (
	listUsersQuery = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id
	`
	getUserByIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	getUserByEmailQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`
	listUsersByBirthdayQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE birth_date LIKE $1
		ORDER BY name
	`
	insertUserQuery = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	updateUserQuery = `
		UPDATE users
		SET name = $1,
			email = $2,
			password_hash = $3,
			phone = $4,
			birth_date = $5,
			avatar = $6,
			is_admin = $7,
			needs_password_change = $8,
			updated_at = $9
		WHERE id = $10
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row rowScanner) (User, error) {
	var (
		u      User
		avatar sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.BirthDate, &avatar,
		&u.IsAdmin, &u.NeedsPasswordChange, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, nil
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) one(ctx context.Context, q string, arg any) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	return r.query(ctx, listUsersQuery)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.one(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.one(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) ListByBirthday(ctx context.Context, month, day int) ([]User, error) {
	return r.query(ctx, listUsersByBirthdayQuery, fmt.Sprintf("____-%02d-%02d", month, day))
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	_, err := r.db.ExecContext(ctx, insertUserQuery,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.BirthDate, u.Avatar,
		u.IsAdmin, u.NeedsPasswordChange, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u User) (User, error) {
	result, err := r.db.ExecContext(ctx, updateUserQuery,
		u.Name, u.Email, u.PasswordHash, u.Phone, u.BirthDate, u.Avatar,
		u.IsAdmin, u.NeedsPasswordChange, u.UpdatedAt, u.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
