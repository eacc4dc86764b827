package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is a marketplace account. Email is the immutable identity.
type User struct {
	Email        string
	Name         string
	PasswordHash string
	Earnings     decimal.Decimal
	CreatedAt    time.Time
}

// NormalizeEmail trims and lowercases an email so storage and lookup agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
