package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningsEntryKind tells whether an entry raised or lowered a balance.
type EarningsEntryKind string

const (
	EarningsCredit EarningsEntryKind = "CREDIT"
	EarningsDebit  EarningsEntryKind = "DEBIT"
)

// EarningsEntry is an immutable journal line for one earnings change.
type EarningsEntry struct {
	ID            int64
	UserEmail     string
	TransactionID int64
	Kind          EarningsEntryKind
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}
