// Package memory provides an in-process repository.Store used by tests and
// local experiments. Transactions are serialized and roll back by restoring a
// snapshot of the whole data set.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
)

type state struct {
	users        map[string]domain.User
	services     map[int64]domain.Service
	transactions map[int64]domain.Transaction
	entries      []domain.EarningsEntry
	nextService  int64
	nextTx       int64
	nextEntry    int64
	ticks        int64
}

func (s *state) clone() *state {
	cp := *s
	cp.users = make(map[string]domain.User, len(s.users))
	for k, v := range s.users {
		cp.users[k] = v
	}
	cp.services = make(map[int64]domain.Service, len(s.services))
	for k, v := range s.services {
		cp.services[k] = v
	}
	cp.transactions = make(map[int64]domain.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		cp.transactions[k] = v
	}
	cp.entries = append([]domain.EarningsEntry(nil), s.entries...)
	return &cp
}

type shared struct {
	mu       sync.Mutex
	data     *state
	failures map[string]error
	base     time.Time
}

// Store is a transactional in-memory repository.Store.
type Store struct {
	sh   *shared
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sh: &shared{
		data: &state{
			users:        map[string]domain.User{},
			services:     map[int64]domain.Service{},
			transactions: map[int64]domain.Transaction{},
		},
		failures: map[string]error{},
		base:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// FailOn makes the named operation (for example "transactions.Transition")
// return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	if err == nil {
		delete(s.sh.failures, op)
		return
	}
	s.sh.failures[op] = err
}

func (s *Store) Users() repository.UserRepository               { return &userRepo{s} }
func (s *Store) Services() repository.ServiceRepository         { return &serviceRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository { return &transactionRepo{s} }
func (s *Store) Earnings() repository.EarningsRepository        { return &earningsRepo{s} }

// WithinTx holds the store lock for the whole of fn and restores the prior
// state when fn fails or ctx is done by the time it returns.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.data.clone()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.data = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.sh.data = snapshot
		return err
	}
	return nil
}

// begin locks the store for a single operation unless a transaction already holds it.
func (s *Store) begin(op string) (*state, func(), error) {
	unlock := func() {}
	if !s.inTx {
		s.sh.mu.Lock()
		unlock = s.sh.mu.Unlock
	}
	if err, ok := s.sh.failures[op]; ok {
		unlock()
		return nil, func() {}, err
	}
	return s.sh.data, unlock, nil
}

func (s *Store) stamp(st *state) time.Time {
	st.ticks++
	return s.sh.base.Add(time.Duration(st.ticks) * time.Second)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	st, unlock, err := r.s.begin("users.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, exists := st.users[user.Email]; exists {
		return uniqueViolation("users_pkey")
	}
	user.Earnings = decimal.Zero
	user.CreatedAt = r.s.stamp(st)
	st.users[user.Email] = *user
	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	st, unlock, err := r.s.begin("users.GetByEmail")
	defer unlock()
	if err != nil {
		return nil, err
	}
	user, ok := st.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepo) GetByName(ctx context.Context, name string) (*domain.User, error) {
	st, unlock, err := r.s.begin("users.GetByName")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var found *domain.User
	for _, user := range st.users {
		if user.Name != name {
			continue
		}
		if found == nil || user.CreatedAt.Before(found.CreatedAt) {
			u := user
			found = &u
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

func (r *userRepo) AddEarnings(ctx context.Context, email string, delta decimal.Decimal) (decimal.Decimal, error) {
	st, unlock, err := r.s.begin("users.AddEarnings")
	defer unlock()
	if err != nil {
		return decimal.Zero, err
	}
	user, ok := st.users[email]
	if !ok {
		return decimal.Zero, pgx.ErrNoRows
	}
	user.Earnings = user.Earnings.Add(delta)
	st.users[email] = user
	return user.Earnings, nil
}

type serviceRepo struct{ s *Store }

func (r *serviceRepo) Create(ctx context.Context, service *domain.Service) error {
	st, unlock, err := r.s.begin("services.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := st.users[service.CreatorEmail]; !ok {
		return &pgconn.PgError{Code: "23503", Message: "creator_email not present in users"}
	}
	st.nextService++
	service.ID = st.nextService
	service.CreatedAt = r.s.stamp(st)
	st.services[service.ID] = *service
	return nil
}

func (r *serviceRepo) LockActive(ctx context.Context, id int64) (*domain.Service, error) {
	st, unlock, err := r.s.begin("services.LockActive")
	defer unlock()
	if err != nil {
		return nil, err
	}
	service, ok := st.services[id]
	if !ok || !service.IsActive {
		return nil, pgx.ErrNoRows
	}
	return &service, nil
}

func (r *serviceRepo) List(ctx context.Context, filter repository.ServiceFilter) ([]domain.Service, error) {
	st, unlock, err := r.s.begin("services.List")
	defer unlock()
	if err != nil {
		return nil, err
	}
	result := []domain.Service{}
	for _, service := range st.services {
		if filter.Active != nil && service.IsActive != *filter.Active {
			continue
		}
		if filter.CreatorEmail != nil && service.CreatorEmail != *filter.CreatorEmail {
			continue
		}
		result = append(result, service)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *serviceRepo) SetActive(ctx context.Context, id int64, ownerEmail string, active bool) (*domain.Service, error) {
	st, unlock, err := r.s.begin("services.SetActive")
	defer unlock()
	if err != nil {
		return nil, err
	}
	service, ok := st.services[id]
	if !ok || service.CreatorEmail != ownerEmail || service.IsActive == active {
		return nil, pgx.ErrNoRows
	}
	service.IsActive = active
	st.services[id] = service
	return &service, nil
}

type transactionRepo struct{ s *Store }

func (r *transactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	st, unlock, err := r.s.begin("transactions.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := st.services[tx.ServiceID]; !ok {
		return &pgconn.PgError{Code: "23503", Message: "service_id not present in services"}
	}
	st.nextTx++
	tx.ID = st.nextTx
	tx.CreatedAt = r.s.stamp(st)
	tx.UpdatedAt = tx.CreatedAt
	st.transactions[tx.ID] = *tx
	return nil
}

func (r *transactionRepo) FindInProgress(ctx context.Context, lookup repository.InProgressLookup) (*domain.Transaction, error) {
	st, unlock, err := r.s.begin("transactions.FindInProgress")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var found *domain.Transaction
	for _, tx := range st.transactions {
		if tx.ServiceID != lookup.ServiceID || tx.Status != domain.TransactionStatusInProgress {
			continue
		}
		if lookup.BuyerEmail != nil && tx.BuyerEmail != *lookup.BuyerEmail {
			continue
		}
		if lookup.TransactionID != nil && tx.ID != *lookup.TransactionID {
			continue
		}
		if found == nil || tx.CreatedAt.Before(found.CreatedAt) ||
			(tx.CreatedAt.Equal(found.CreatedAt) && tx.ID < found.ID) {
			t := tx
			found = &t
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

func (r *transactionRepo) Transition(ctx context.Context, id int64, from, to domain.TransactionStatus) (*domain.Transaction, error) {
	st, unlock, err := r.s.begin("transactions.Transition")
	defer unlock()
	if err != nil {
		return nil, err
	}
	tx, ok := st.transactions[id]
	if !ok || tx.Status != from {
		return nil, pgx.ErrNoRows
	}
	tx.Status = to
	tx.UpdatedAt = r.s.stamp(st)
	st.transactions[id] = tx
	return &tx, nil
}

func (r *transactionRepo) ListByBuyer(ctx context.Context, buyer string) ([]domain.Transaction, error) {
	st, unlock, err := r.s.begin("transactions.ListByBuyer")
	defer unlock()
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(buyer)
	result := []domain.Transaction{}
	for _, tx := range st.transactions {
		if tx.Buyer == buyer || tx.BuyerEmail == email {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

type earningsRepo struct{ s *Store }

func (r *earningsRepo) Create(ctx context.Context, entry *domain.EarningsEntry) error {
	st, unlock, err := r.s.begin("earnings.Create")
	defer unlock()
	if err != nil {
		return err
	}
	st.nextEntry++
	entry.ID = st.nextEntry
	entry.CreatedAt = r.s.stamp(st)
	st.entries = append(st.entries, *entry)
	return nil
}

func (r *earningsRepo) ListByUser(ctx context.Context, email string, limit int) ([]domain.EarningsEntry, error) {
	st, unlock, err := r.s.begin("earnings.ListByUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	result := []domain.EarningsEntry{}
	for i := len(st.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if st.entries[i].UserEmail == email {
			result = append(result, st.entries[i])
		}
	}
	return result, nil
}
