package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignupRequest payload for new users.
type SignupRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=1,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Earnings  decimal.Decimal `json:"earnings"`
	CreatedAt time.Time       `json:"createdAt"`
}

// LoginResponse standard response for login.
type LoginResponse struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Earnings  decimal.Decimal `json:"earnings"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// EarningsEntryResponse is one journal line.
type EarningsEntryResponse struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transactionId"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// EarningsResponse is a balance with its recent journal.
type EarningsResponse struct {
	Email    string                  `json:"email"`
	Earnings decimal.Decimal         `json:"earnings"`
	Entries  []EarningsEntryResponse `json:"entries"`
}
