package repository

import (
	"context"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// EarningsRepository stores the append-only earnings journal.
type EarningsRepository interface {
	Create(ctx context.Context, entry *domain.EarningsEntry) error
	ListByUser(ctx context.Context, email string, limit int) ([]domain.EarningsEntry, error)
}

type earningsRepository struct {
	q Querier
}

func (r *earningsRepository) Create(ctx context.Context, entry *domain.EarningsEntry) error {
	const query = `
        INSERT INTO earnings_entries (user_email, transaction_id, kind, amount, balance_after)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		entry.UserEmail,
		entry.TransactionID,
		entry.Kind,
		entry.Amount,
		entry.BalanceAfter,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *earningsRepository) ListByUser(ctx context.Context, email string, limit int) ([]domain.EarningsEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, user_email, transaction_id, kind, amount, balance_after, created_at
        FROM earnings_entries WHERE user_email=$1
        ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.EarningsEntry{}
	for rows.Next() {
		var entry domain.EarningsEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserEmail,
			&entry.TransactionID,
			&entry.Kind,
			&entry.Amount,
			&entry.BalanceAfter,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
