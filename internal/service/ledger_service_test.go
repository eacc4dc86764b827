package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func TestPurchaseComputesPriceServerSide(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)

	tx := f.buy(t, svc.ID, 3)

	assert.True(t, decimal.NewFromInt(30).Equal(tx.Price))
	assert.Equal(t, domain.TransactionStatusInProgress, tx.Status)
	assert.Equal(t, f.seller.Email, tx.SellerEmail)
	assert.Equal(t, "Sam", tx.Seller)
	assert.Equal(t, f.buyer.Email, tx.BuyerEmail)
	assert.True(t, f.earnings(t, f.seller.Email).IsZero(), "purchase must not move earnings")
}

func TestPurchaseRejectsInactiveService(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	_, err := f.catalog.Deactivate(context.Background(), svc.ID, f.seller.Email)
	require.NoError(t, err)

	_, err = f.ledger.Purchase(context.Background(), PurchaseInput{ServiceID: svc.ID, Buyer: f.buyer, Quantity: 1, Token: "t"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	txs, err := f.ledger.ListByBuyer(context.Background(), f.buyer.Name)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestPurchaseRejectsUnknownService(t *testing.T) {
	f := newLedgerFixture(t, false)

	_, err := f.ledger.Purchase(context.Background(), PurchaseInput{ServiceID: 99, Buyer: f.buyer, Quantity: 1, Token: "t"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestPurchaseValidatesInput(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)

	cases := []struct {
		name  string
		input PurchaseInput
		code  string
	}{
		{"zero quantity", PurchaseInput{ServiceID: svc.ID, Buyer: f.buyer, Quantity: 0, Token: "t"}, "VALIDATION_FAILED"},
		{"negative quantity", PurchaseInput{ServiceID: svc.ID, Buyer: f.buyer, Quantity: -2, Token: "t"}, "VALIDATION_FAILED"},
		{"quantity beyond integer column", PurchaseInput{ServiceID: svc.ID, Buyer: f.buyer, Quantity: 3000000000, Token: "t"}, "VALIDATION_FAILED"},
		{"missing token", PurchaseInput{ServiceID: svc.ID, Buyer: f.buyer, Quantity: 1}, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Purchase(context.Background(), tc.input)
			assert.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestPurchaseRejectsTotalBeyondPriceColumn(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 9999999999)

	_, err := f.ledger.Purchase(context.Background(), PurchaseInput{ServiceID: svc.ID, Buyer: f.buyer, Quantity: 1000, Token: "t"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "got %v", err)

	txs, err := f.ledger.ListByBuyer(context.Background(), f.buyer.Email)
	require.NoError(t, err)
	assert.Empty(t, txs)

	tx := f.buy(t, svc.ID, 99)
	assert.True(t, decimal.RequireFromString("989999999901").Equal(tx.Price))
}

func TestDeliverCreditsSellerExactlyOnce(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	tx := f.buy(t, svc.ID, 3)

	result, err := f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, result.Transaction.ID)
	assert.Equal(t, domain.TransactionStatusDelivered, result.Transaction.Status)
	require.NotNil(t, result.SellerBalance)
	assert.True(t, decimal.NewFromInt(30).Equal(*result.SellerBalance))
	assert.True(t, decimal.NewFromInt(30).Equal(f.earnings(t, f.seller.Email)))

	_, err = f.ledger.Deliver(context.Background(), svc.ID, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	assert.True(t, decimal.NewFromInt(30).Equal(f.earnings(t, f.seller.Email)))

	statement, err := f.ledger.Earnings(context.Background(), f.seller.Email, 10)
	require.NoError(t, err)
	require.Len(t, statement.Entries, 1)
	assert.Equal(t, domain.EarningsCredit, statement.Entries[0].Kind)
	assert.True(t, decimal.NewFromInt(30).Equal(statement.Entries[0].BalanceAfter))
}

func TestCancelAfterDeliverIsNotFound(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 3)

	_, err := f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.NoError(t, err)

	_, err = f.ledger.Cancel(context.Background(), svc.ID, f.buyer.Email, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	assert.True(t, decimal.NewFromInt(30).Equal(f.earnings(t, f.seller.Email)))
}

func TestCancelIsScopedToBuyer(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 1)

	_, err := f.ledger.Cancel(context.Background(), svc.ID, "someone@else.com", nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	result, err := f.ledger.Cancel(context.Background(), svc.ID, "  BUYER@example.com ", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCanceled, result.Transaction.Status)

	_, err = f.ledger.Cancel(context.Background(), svc.ID, f.buyer.Email, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestCancelIsEarningsNeutralByDefault(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 2)

	result, err := f.ledger.Cancel(context.Background(), svc.ID, f.buyer.Email, nil)
	require.NoError(t, err)
	assert.Nil(t, result.SellerBalance)
	assert.True(t, f.earnings(t, f.seller.Email).IsZero())

	statement, err := f.ledger.Earnings(context.Background(), f.seller.Email, 0)
	require.NoError(t, err)
	assert.Empty(t, statement.Entries)
}

func TestCancelDebitsSellerWhenEnabled(t *testing.T) {
	f := newLedgerFixture(t, true)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 2)

	result, err := f.ledger.Cancel(context.Background(), svc.ID, f.buyer.Email, nil)
	require.NoError(t, err)
	require.NotNil(t, result.SellerBalance)
	assert.True(t, decimal.NewFromInt(-20).Equal(f.earnings(t, f.seller.Email)))

	statement, err := f.ledger.Earnings(context.Background(), f.seller.Email, 0)
	require.NoError(t, err)
	require.Len(t, statement.Entries, 1)
	assert.Equal(t, domain.EarningsDebit, statement.Entries[0].Kind)
	assert.True(t, decimal.NewFromInt(20).Equal(statement.Entries[0].Amount))
}

func TestDeliverPicksOldestOrRequestedTransaction(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 5)
	first := f.buy(t, svc.ID, 1)
	second := f.buy(t, svc.ID, 2)
	third := f.buy(t, svc.ID, 3)

	result, err := f.ledger.Deliver(context.Background(), svc.ID, &third.ID)
	require.NoError(t, err)
	assert.Equal(t, third.ID, result.Transaction.ID)

	result, err = f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.Transaction.ID)

	result, err = f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, second.ID, result.Transaction.ID)

	assert.True(t, decimal.NewFromInt(30).Equal(f.earnings(t, f.seller.Email)))
}

func TestDeliverRollsBackWhenJournalFails(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 1)

	f.store.FailOn("earnings.Create", errors.New("disk full"))
	_, err := f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INTERNAL_ERROR"))
	assert.True(t, f.earnings(t, f.seller.Email).IsZero())

	f.store.FailOn("earnings.Create", nil)
	result, err := f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.NoError(t, err, "transaction must still be in progress after rollback")
	assert.True(t, decimal.NewFromInt(10).Equal(*result.SellerBalance))
}

func TestDeliverRollsBackWhenEarningsUpdateFails(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 1)

	f.store.FailOn("users.AddEarnings", errors.New("connection reset"))
	_, err := f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.Error(t, err)

	txs, err := f.ledger.ListByBuyer(context.Background(), f.buyer.Email)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionStatusInProgress, txs[0].Status)
}

func TestListByBuyerMatchesNameOrEmail(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 1)
	f.buy(t, svc.ID, 2)

	byName, err := f.ledger.ListByBuyer(context.Background(), "Bea")
	require.NoError(t, err)
	assert.Len(t, byName, 2)
	assert.Equal(t, 2, byName[0].Quantity, "newest first")

	byEmail, err := f.ledger.ListByBuyer(context.Background(), "Buyer@Example.com")
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	none, err := f.ledger.ListByBuyer(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestLedgerEmitsLifecycleEvents(t *testing.T) {
	f := newLedgerFixture(t, false)
	svc := f.listService(t, 10)
	f.buy(t, svc.ID, 1)
	f.buy(t, svc.ID, 1)
	_, err := f.ledger.Deliver(context.Background(), svc.ID, nil)
	require.NoError(t, err)
	_, err = f.ledger.Cancel(context.Background(), svc.ID, f.buyer.Email, nil)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventServiceCreated,
		events.EventTransactionCreated,
		events.EventTransactionCreated,
		events.EventTransactionDelivered,
		events.EventTransactionCanceled,
	}, f.events.types())
}

func TestStoreFailureIsInternalError(t *testing.T) {
	f := newLedgerFixture(t, false)
	f.store.FailOn("transactions.ListByBuyer", errors.New("pool closed"))

	_, err := f.ledger.ListByBuyer(context.Background(), "Bea")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, 500, domainErr.HTTPStatus)
	assert.Equal(t, "internal server error", domainErr.Message)
}
