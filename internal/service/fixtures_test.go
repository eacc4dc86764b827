package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository/memory"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]domain.Session{}}
}

func (f *fakeSessions) Save(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &session, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func recordingDispatcher() (events.Dispatcher, *recordedEvents) {
	d := events.NewInMemoryDispatcher(nil)
	rec := &recordedEvents{}
	for _, eventType := range events.AllEventTypes {
		d.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.events = append(rec.events, e)
			return nil
		})
	}
	return d, rec
}

type ledgerFixture struct {
	store   *memory.Store
	ledger  *LedgerService
	catalog *CatalogService
	events  *recordedEvents
	seller  *domain.User
	buyer   *domain.User
}

func newLedgerFixture(t *testing.T, debitOnCancel bool) *ledgerFixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher, rec := recordingDispatcher()

	seller := &domain.User{Email: "seller@example.com", Name: "Sam"}
	buyer := &domain.User{Email: "buyer@example.com", Name: "Bea"}
	require.NoError(t, store.Users().Create(context.Background(), seller))
	require.NoError(t, store.Users().Create(context.Background(), buyer))

	return &ledgerFixture{
		store: store,
		ledger: NewLedgerService(LedgerDependencies{
			Store:         store,
			Dispatcher:    dispatcher,
			DebitOnCancel: debitOnCancel,
		}),
		catalog: NewCatalogService(CatalogDependencies{Store: store, Dispatcher: dispatcher}),
		events:  rec,
		seller:  seller,
		buyer:   buyer,
	}
}

func (f *ledgerFixture) listService(t *testing.T, price int64) *domain.Service {
	t.Helper()
	svc, err := f.catalog.Create(context.Background(), f.seller.Email, ServiceCreateInput{
		Name:     "Logo design",
		Category: "design",
		Price:    decimal.NewFromInt(price),
		Deadline: 7,
	})
	require.NoError(t, err)
	return svc
}

func (f *ledgerFixture) buy(t *testing.T, serviceID int64, qty int) *domain.Transaction {
	t.Helper()
	tx, err := f.ledger.Purchase(context.Background(), PurchaseInput{
		ServiceID: serviceID,
		Buyer:     f.buyer,
		Quantity:  qty,
		Token:     "token",
	})
	require.NoError(t, err)
	return tx
}

func (f *ledgerFixture) earnings(t *testing.T, email string) decimal.Decimal {
	t.Helper()
	user, err := f.store.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return user.Earnings
}
