package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventServiceCreated       EventType = "service.created"
	EventServiceActivated     EventType = "service.activated"
	EventServiceDeactivated   EventType = "service.deactivated"
	EventTransactionCreated   EventType = "transaction.created"
	EventTransactionDelivered EventType = "transaction.delivered"
	EventTransactionCanceled  EventType = "transaction.canceled"
)

// AllEventTypes lists every type the services emit.
var AllEventTypes = []EventType{
	EventServiceCreated,
	EventServiceActivated,
	EventServiceDeactivated,
	EventTransactionCreated,
	EventTransactionDelivered,
	EventTransactionCanceled,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ActorEmail  string      `json:"actor_email,omitempty"`
	ServiceID   int64       `json:"service_id"`
	Transaction *int64      `json:"transaction_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ServiceChangedPayload accompanies service.* events.
type ServiceChangedPayload struct {
	Name         string          `json:"name"`
	CreatorEmail string          `json:"creator_email"`
	Price        decimal.Decimal `json:"price"`
	IsActive     bool            `json:"is_active"`
}

// TransactionPayload accompanies transaction.* events.
type TransactionPayload struct {
	BuyerEmail  string                   `json:"buyer_email"`
	SellerEmail string                   `json:"seller_email"`
	Quantity    int                      `json:"quantity"`
	Price       decimal.Decimal          `json:"price"`
	OldStatus   domain.TransactionStatus `json:"old_status,omitempty"`
	NewStatus   domain.TransactionStatus `json:"new_status"`
	// SellerBalance is set when the transition moved the seller's earnings.
	SellerBalance *decimal.Decimal `json:"seller_balance,omitempty"`
}
