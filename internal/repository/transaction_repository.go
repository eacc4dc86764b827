package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// InProgressLookup selects the in-progress transaction of a service. When
// several match, the oldest one wins.
type InProgressLookup struct {
	ServiceID     int64
	BuyerEmail    *string
	TransactionID *int64
}

// TransactionRepository encapsulates purchase persistence.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	// FindInProgress locks the matching row for the surrounding transaction.
	FindInProgress(ctx context.Context, lookup InProgressLookup) (*domain.Transaction, error)
	// Transition moves a transaction from one status to another in a single
	// conditional statement. pgx.ErrNoRows when the row is not in status from.
	Transition(ctx context.Context, id int64, from, to domain.TransactionStatus) (*domain.Transaction, error)
	ListByBuyer(ctx context.Context, buyer string) ([]domain.Transaction, error)
}

type transactionRepository struct {
	q Querier
}

const transactionColumns = `id, buyer, buyer_email, seller, seller_email, service_id, service_qtd,
               transaction_price, transaction_status, token, created_at, updated_at`

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (buyer, buyer_email, seller, seller_email, service_id, service_qtd, transaction_price, transaction_status, token)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		tx.Buyer,
		tx.BuyerEmail,
		tx.Seller,
		tx.SellerEmail,
		tx.ServiceID,
		tx.Quantity,
		tx.Price,
		tx.Status,
		tx.Token,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

func (r *transactionRepository) FindInProgress(ctx context.Context, lookup InProgressLookup) (*domain.Transaction, error) {
	args := []any{lookup.ServiceID, domain.TransactionStatusInProgress}
	clauses := []string{"service_id=$1", "transaction_status=$2"}

	if lookup.BuyerEmail != nil {
		args = append(args, *lookup.BuyerEmail)
		clauses = append(clauses, fmt.Sprintf("buyer_email=$%d", len(args)))
	}
	if lookup.TransactionID != nil {
		args = append(args, *lookup.TransactionID)
		clauses = append(clauses, fmt.Sprintf("id=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s
             ORDER BY created_at ASC, id ASC LIMIT 1 FOR UPDATE`,
		transactionColumns, strings.Join(clauses, " AND "))
	return scanTransaction(r.q.QueryRow(ctx, query, args...))
}

func (r *transactionRepository) Transition(ctx context.Context, id int64, from, to domain.TransactionStatus) (*domain.Transaction, error) {
	query := `
        UPDATE transactions SET transaction_status=$1, updated_at=NOW()
        WHERE id=$2 AND transaction_status=$3
        RETURNING ` + transactionColumns
	return scanTransaction(r.q.QueryRow(ctx, query, to, id, from))
}

func (r *transactionRepository) ListByBuyer(ctx context.Context, buyer string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
             WHERE buyer=$1 OR buyer_email=$2
             ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, buyer, domain.NormalizeEmail(buyer))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tx)
	}
	return result, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := row.Scan(
		&tx.ID,
		&tx.Buyer,
		&tx.BuyerEmail,
		&tx.Seller,
		&tx.SellerEmail,
		&tx.ServiceID,
		&tx.Quantity,
		&tx.Price,
		&tx.Status,
		&tx.Token,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tx, nil
}
