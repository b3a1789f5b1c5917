// Package repository implements PostgreSQL-backed persistence for the
// scoring domain using pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainerrors "github.com/davidleathers/zero-trust-scoring-backend/internal/domain/errors"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
)

const userColumns = `
	id, email, trust_score, current_risk_level, account_locked,
	failed_login_attempts, last_login_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user %s: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	query := `SELECT` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Email, u.TrustScore, u.CurrentRiskLevel.String(), u.AccountLocked,
		u.FailedLoginAttempts, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// UpdateScore writes back the latest trust score and risk level.
func (r *UserRepository) UpdateScore(ctx context.Context, id uuid.UUID, score float64, level string) error {
	query := `
		UPDATE users
		SET trust_score = $2, current_risk_level = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, score, level)
	if err != nil {
		return fmt.Errorf("updating user score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

// Unlock clears the account lock and resets the failed login counter.
func (r *UserRepository) Unlock(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET account_locked = false, failed_login_attempts = 0, updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("unlocking user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var level string
	if err := row.Scan(
		&u.ID, &u.Email, &u.TrustScore, &level, &u.AccountLocked,
		&u.FailedLoginAttempts, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.CurrentRiskLevel = values.ParseRiskLevel(level)
	return &u, nil
}
