package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// UserRepository defines persistence access for marketplace users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	// AddEarnings adds delta to the balance in a single statement and returns
	// the new balance.
	AddEarnings(ctx context.Context, email string, delta decimal.Decimal) (decimal.Decimal, error)
}

type userRepository struct {
	q Querier
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password)
        VALUES ($1, $2, $3)
        RETURNING earnings, createdat`

	return r.q.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
	).Scan(&user.Earnings, &user.CreatedAt)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT email, name, password, earnings, createdat
        FROM users WHERE email=$1`
	return scanUser(r.q.QueryRow(ctx, query, email))
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	const query = `
        SELECT email, name, password, earnings, createdat
        FROM users WHERE name=$1
        ORDER BY createdat ASC LIMIT 1`
	return scanUser(r.q.QueryRow(ctx, query, name))
}

func (r *userRepository) AddEarnings(ctx context.Context, email string, delta decimal.Decimal) (decimal.Decimal, error) {
	const query = `
        UPDATE users SET earnings = earnings + $1
        WHERE email=$2
        RETURNING earnings`

	var balance decimal.Decimal
	if err := r.q.QueryRow(ctx, query, delta, email).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Earnings,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
