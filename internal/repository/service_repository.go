package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// ServiceFilter captures listing parameters. Nil fields are not filtered on.
type ServiceFilter struct {
	Active       *bool
	CreatorEmail *string
}

// ServiceRepository encapsulates service persistence.
type ServiceRepository interface {
	Create(ctx context.Context, service *domain.Service) error
	// LockActive reads an active service with a row lock held until the
	// surrounding transaction ends.
	LockActive(ctx context.Context, id int64) (*domain.Service, error)
	List(ctx context.Context, filter ServiceFilter) ([]domain.Service, error)
	// SetActive flips is_active for a service owned by ownerEmail whose current
	// state is !active. pgx.ErrNoRows when nothing matched.
	SetActive(ctx context.Context, id int64, ownerEmail string, active bool) (*domain.Service, error)
}

type serviceRepository struct {
	q Querier
}

const serviceColumns = `id, creator, creator_email, service_name, service_description, category,
               price, deadline, is_active, created_at`

func (r *serviceRepository) Create(ctx context.Context, service *domain.Service) error {
	const query = `
        INSERT INTO services (creator, creator_email, service_name, service_description, category, price, deadline, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		service.Creator,
		service.CreatorEmail,
		service.Name,
		service.Description,
		service.Category,
		service.Price,
		service.Deadline,
		service.IsActive,
	).Scan(&service.ID, &service.CreatedAt)
}

func (r *serviceRepository) LockActive(ctx context.Context, id int64) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id=$1 AND is_active=TRUE FOR UPDATE`
	return scanService(r.q.QueryRow(ctx, query, id))
}

func (r *serviceRepository) List(ctx context.Context, filter ServiceFilter) ([]domain.Service, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if filter.CreatorEmail != nil {
		args = append(args, *filter.CreatorEmail)
		clauses = append(clauses, fmt.Sprintf("creator_email=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM services WHERE %s ORDER BY created_at DESC, id DESC`,
		serviceColumns, strings.Join(clauses, " AND "))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Service{}
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *service)
	}
	return result, rows.Err()
}

func (r *serviceRepository) SetActive(ctx context.Context, id int64, ownerEmail string, active bool) (*domain.Service, error) {
	query := `
        UPDATE services SET is_active=$1
        WHERE id=$2 AND creator_email=$3 AND is_active=$4
        RETURNING ` + serviceColumns
	return scanService(r.q.QueryRow(ctx, query, active, id, ownerEmail, !active))
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var service domain.Service
	if err := row.Scan(
		&service.ID,
		&service.Creator,
		&service.CreatorEmail,
		&service.Name,
		&service.Description,
		&service.Category,
		&service.Price,
		&service.Deadline,
		&service.IsActive,
		&service.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &service, nil
}
