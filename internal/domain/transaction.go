package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus enumerates lifecycle states for purchases.
type TransactionStatus string

const (
	TransactionStatusInProgress TransactionStatus = "In progress"
	TransactionStatusDelivered  TransactionStatus = "Delivered"
	TransactionStatusCanceled   TransactionStatus = "Canceled"
)

var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusInProgress: {TransactionStatusDelivered, TransactionStatusCanceled},
	TransactionStatusDelivered:  {},
	TransactionStatusCanceled:   {},
}

// CanTransition reports whether a transaction may move from current to next.
func CanTransition(current, next TransactionStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (s TransactionStatus) IsTerminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// Transaction records one buyer's purchase of a quantity of a service.
type Transaction struct {
	ID          int64
	Buyer       string
	BuyerEmail  string
	Seller      string
	SellerEmail string
	ServiceID   int64
	Quantity    int
	Price       decimal.Decimal
	Status      TransactionStatus
	Token       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
