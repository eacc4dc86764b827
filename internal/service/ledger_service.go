package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// LedgerService drives the purchase lifecycle and the earnings it produces.
type LedgerService struct {
	store         repository.Store
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	debitOnCancel bool
}

// LedgerDependencies bundles collaborators for the ledger service.
type LedgerDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// DebitOnCancel makes Cancel subtract the price from the seller.
	DebitOnCancel bool
}

// PurchaseInput describes a buy request. Price is always derived from the service.
type PurchaseInput struct {
	ServiceID int64
	Buyer     *domain.User
	Quantity  int
	Token     string
}

// TransitionResult is the outcome of a deliver or cancel.
type TransitionResult struct {
	Transaction *domain.Transaction
	// SellerBalance is nil when the seller's earnings were left untouched.
	SellerBalance *decimal.Decimal
}

// EarningsStatement is a user's balance with its most recent journal lines.
type EarningsStatement struct {
	Email   string
	Balance decimal.Decimal
	Entries []domain.EarningsEntry
}

// NewLedgerService constructs the service.
func NewLedgerService(deps LedgerDependencies) *LedgerService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		store:         deps.Store,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		debitOnCancel: deps.DebitOnCancel,
	}
}

// Purchase records an in-progress transaction against an active service. The
// service row stays locked until the insert commits, so a purchase cannot
// race a deactivation.
func (s *LedgerService) Purchase(ctx context.Context, input PurchaseInput) (*domain.Transaction, error) {
	if strings.TrimSpace(input.Token) == "" {
		return nil, apperrors.NewForbidden("missing authorization token")
	}
	if input.Buyer == nil {
		return nil, apperrors.NewUnauthorized("buyer not authenticated")
	}
	if input.Quantity < 1 || input.Quantity > domain.MaxColumnInt {
		return nil, apperrors.NewValidationError("serviceQtd must be a positive integer", map[string]any{"field": "serviceQtd"})
	}

	var created *domain.Transaction
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		service, err := tx.Services().LockActive(ctx, input.ServiceID)
		if err != nil {
			return notFoundOr(err, "service", map[string]any{"serviceId": input.ServiceID})
		}
		price := service.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
		if !domain.FitsPrice(price, domain.MaxTransactionPrice) {
			return apperrors.NewValidationError("serviceQtd makes the transaction price too large",
				map[string]any{"field": "serviceQtd"})
		}

		record := &domain.Transaction{
			Buyer:       input.Buyer.Name,
			BuyerEmail:  input.Buyer.Email,
			Seller:      service.Creator,
			SellerEmail: service.CreatorEmail,
			ServiceID:   service.ID,
			Quantity:    input.Quantity,
			Price:       price,
			Status:      domain.TransactionStatusInProgress,
			Token:       input.Token,
		}
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return err
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.logger.Info("transaction created",
		zap.Int64("transaction_id", created.ID),
		zap.Int64("service_id", created.ServiceID),
		zap.String("buyer_email", created.BuyerEmail),
		zap.String("price", created.Price.String()))
	s.publish(ctx, events.EventTransactionCreated, created, "", nil)
	return created, nil
}

// Deliver completes the oldest in-progress transaction of serviceID, or the
// given transaction, and credits the seller in the same database transaction.
func (s *LedgerService) Deliver(ctx context.Context, serviceID int64, transactionID *int64) (*TransitionResult, error) {
	lookup := repository.InProgressLookup{ServiceID: serviceID, TransactionID: transactionID}
	result, err := s.transition(ctx, lookup, domain.TransactionStatusDelivered, domain.EarningsCredit)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTransactionDelivered, result.Transaction, domain.TransactionStatusInProgress, result.SellerBalance)
	return result, nil
}

// Cancel aborts an in-progress transaction bought by buyer. Earnings are only
// touched when debit on cancel is enabled.
func (s *LedgerService) Cancel(ctx context.Context, serviceID int64, buyer string, transactionID *int64) (*TransitionResult, error) {
	buyerEmail := domain.NormalizeEmail(buyer)
	if buyerEmail == "" {
		return nil, apperrors.NewUnprocessable("buyer is required", map[string]any{"field": "buyer"})
	}

	lookup := repository.InProgressLookup{ServiceID: serviceID, BuyerEmail: &buyerEmail, TransactionID: transactionID}
	kind := domain.EarningsEntryKind("")
	if s.debitOnCancel {
		kind = domain.EarningsDebit
	}
	result, err := s.transition(ctx, lookup, domain.TransactionStatusCanceled, kind)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTransactionCanceled, result.Transaction, domain.TransactionStatusInProgress, result.SellerBalance)
	return result, nil
}

// transition moves the matched transaction to status to and, when kind is set,
// applies the matching earnings change and journal entry. All writes commit together.
func (s *LedgerService) transition(ctx context.Context, lookup repository.InProgressLookup, to domain.TransactionStatus, kind domain.EarningsEntryKind) (*TransitionResult, error) {
	details := map[string]any{"serviceId": lookup.ServiceID}
	if lookup.TransactionID != nil {
		details["transactionId"] = *lookup.TransactionID
	}

	result := &TransitionResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Transactions().FindInProgress(ctx, lookup)
		if err != nil {
			return notFoundOr(err, "transaction", details)
		}
		if current.Status.IsTerminal() || !domain.CanTransition(current.Status, to) {
			return apperrors.NewNotFound("transaction", details)
		}

		updated, err := tx.Transactions().Transition(ctx, current.ID, current.Status, to)
		if err != nil {
			return notFoundOr(err, "transaction", details)
		}
		result.Transaction = updated

		if kind == "" {
			return nil
		}
		delta := updated.Price
		if kind == domain.EarningsDebit {
			delta = delta.Neg()
		}
		balance, err := tx.Users().AddEarnings(ctx, updated.SellerEmail, delta)
		if err != nil {
			return err
		}
		entry := &domain.EarningsEntry{
			UserEmail:     updated.SellerEmail,
			TransactionID: updated.ID,
			Kind:          kind,
			Amount:        updated.Price,
			BalanceAfter:  balance,
		}
		if err := tx.Earnings().Create(ctx, entry); err != nil {
			return err
		}
		result.SellerBalance = &balance
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	fields := []zap.Field{
		zap.Int64("transaction_id", result.Transaction.ID),
		zap.Int64("service_id", result.Transaction.ServiceID),
		zap.String("status", string(result.Transaction.Status)),
		zap.String("seller_email", result.Transaction.SellerEmail),
	}
	if result.SellerBalance != nil {
		fields = append(fields, zap.String("seller_balance", result.SellerBalance.String()))
	}
	s.logger.Info("transaction transitioned", fields...)
	return result, nil
}

// ListByBuyer returns transactions bought by name, matched on either the
// buyer's display name or email, newest first.
func (s *LedgerService) ListByBuyer(ctx context.Context, name string) ([]domain.Transaction, error) {
	txs, err := s.store.Transactions().ListByBuyer(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return txs, nil
}

// Earnings returns the balance of email with up to limit journal entries.
func (s *LedgerService) Earnings(ctx context.Context, email string, limit int) (*EarningsStatement, error) {
	email = domain.NormalizeEmail(email)
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"email": email})
	}
	entries, err := s.store.Earnings().ListByUser(ctx, email, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &EarningsStatement{Email: user.Email, Balance: user.Earnings, Entries: entries}, nil
}

func (s *LedgerService) mapErr(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	s.logger.Error("ledger store failure", zap.Error(err))
	return apperrors.NewInternalError(err)
}

func (s *LedgerService) publish(ctx context.Context, eventType events.EventType, tx *domain.Transaction, from domain.TransactionStatus, balance *decimal.Decimal) {
	id := tx.ID
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:        eventType,
		ActorEmail:  tx.BuyerEmail,
		ServiceID:   tx.ServiceID,
		Transaction: &id,
		Payload: events.TransactionPayload{
			BuyerEmail:    tx.BuyerEmail,
			SellerEmail:   tx.SellerEmail,
			Quantity:      tx.Quantity,
			Price:         tx.Price,
			OldStatus:     from,
			NewStatus:     tx.Status,
			SellerBalance: balance,
		},
	})
}
