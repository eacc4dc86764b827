package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Service is an offering listed by its creator. Services are never deleted,
// only toggled inactive by their owner.
type Service struct {
	ID           int64
	Creator      string
	CreatorEmail string
	Name         string
	Description  string
	Category     string
	Price        decimal.Decimal
	Deadline     int
	IsActive     bool
	CreatedAt    time.Time
}

// Storage bounds shared by services and transactions.
const (
	PriceScale   = 2
	MaxColumnInt = math.MaxInt32
)

var (
	// MaxServicePrice is the exclusive upper bound of a listed price.
	MaxServicePrice = decimal.New(1, 10)
	// MaxTransactionPrice is the exclusive upper bound of a purchase total.
	MaxTransactionPrice = decimal.New(1, 12)
)

// FitsPrice reports whether value is stored without rounding and stays below limit.
func FitsPrice(value, limit decimal.Decimal) bool {
	return value.Equal(value.Truncate(PriceScale)) && value.Abs().LessThan(limit)
}
