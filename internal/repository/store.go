package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// Querier is implemented by both *pgxpool.Pool and pgx.Tx so repositories run
// unchanged inside or outside a database transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the ledger repositories and offers scoped transactions.
type Store interface {
	Users() UserRepository
	Services() ServiceRepository
	Transactions() TransactionRepository
	Earnings() EarningsRepository
	// WithinTx runs fn against a transactional Store. All writes made through
	// it commit together when fn returns nil and roll back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	q    Querier
	inTx bool
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, q: pool}
}

func (s *pgStore) Users() UserRepository               { return &userRepository{q: s.q} }
func (s *pgStore) Services() ServiceRepository         { return &serviceRepository{q: s.q} }
func (s *pgStore) Transactions() TransactionRepository { return &transactionRepository{q: s.q} }
func (s *pgStore) Earnings() EarningsRepository        { return &earningsRepository{q: s.q} }

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, q: tx, inTx: true})
	})
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
