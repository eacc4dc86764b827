package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest payload. Any price supplied by the client is ignored.
type PurchaseRequest struct {
	ServiceQtd json.RawMessage `json:"serviceQtd" validate:"required"`
}

// DeliverRequest optionally names the transaction to deliver.
type DeliverRequest struct {
	TransactionID *int64 `json:"transactionId" validate:"omitempty,gt=0"`
}

// CancelRequest scopes a cancellation to the buyer who purchased. Buyer is
// the buyer's email, matched case-insensitively. A display name never matches.
type CancelRequest struct {
	Buyer         string `json:"buyer" validate:"required"`
	TransactionID *int64 `json:"transactionId" validate:"omitempty,gt=0"`
}

// TransactionResponse is the public view of a purchase.
type TransactionResponse struct {
	ID                int64           `json:"id"`
	Buyer             string          `json:"buyer"`
	BuyerEmail        string          `json:"buyerEmail"`
	Seller            string          `json:"seller"`
	SellerEmail       string          `json:"sellerEmail"`
	ServiceID         int64           `json:"serviceId"`
	ServiceQtd        int             `json:"serviceQtd"`
	TransactionPrice  decimal.Decimal `json:"transactionPrice"`
	TransactionStatus string          `json:"transactionStatus"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TransitionResponse reports a deliver or cancel.
type TransitionResponse struct {
	Transaction   TransactionResponse `json:"transaction"`
	SellerBalance *decimal.Decimal    `json:"sellerEarnings,omitempty"`
}
