package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CreateServiceRequest payload. Price and deadline are kept raw so a
// non-numeric value can be told apart from a missing one.
type CreateServiceRequest struct {
	ServiceName        string          `json:"serviceName" validate:"required,max=200"`
	ServiceDescription string          `json:"serviceDescription" validate:"max=5000"`
	Category           string          `json:"category" validate:"required,max=100"`
	Price              json.RawMessage `json:"price" validate:"required"`
	Deadline           json.RawMessage `json:"deadline" validate:"required"`
}

// ServiceResponse is the public view of a listing.
type ServiceResponse struct {
	ID                 int64           `json:"id"`
	Creator            string          `json:"creator"`
	CreatorEmail       string          `json:"creatorEmail"`
	ServiceName        string          `json:"serviceName"`
	ServiceDescription string          `json:"serviceDescription"`
	Category           string          `json:"category"`
	Price              decimal.Decimal `json:"price"`
	Deadline           int             `json:"deadline"`
	IsActive           bool            `json:"isActive"`
	CreatedAt          time.Time       `json:"createdAt"`
}
