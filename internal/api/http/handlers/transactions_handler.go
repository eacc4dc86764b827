package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// TransactionsHandler exposes the purchase lifecycle.
type TransactionsHandler struct {
	ledger *service.LedgerService
}

// NewTransactionsHandler constructs handler.
func NewTransactionsHandler(ledger *service.LedgerService) *TransactionsHandler {
	return &TransactionsHandler{ledger: ledger}
}

// Buy POST /services/buy/:serviceId.
func (h *TransactionsHandler) Buy(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewForbidden("missing authorization token")
	}
	id, err := pathID(c, "serviceId", "service")
	if err != nil {
		return err
	}
	var req dto.PurchaseRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	qty, err := parseIntField(req.ServiceQtd, "serviceQtd")
	if err != nil {
		return err
	}

	tx, err := h.ledger.Purchase(c.UserContext(), service.PurchaseInput{
		ServiceID: id,
		Buyer:     principal.User,
		Quantity:  qty,
		Token:     principal.Token,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": transactionResponse(tx)})
}

// Deliver POST /services/deliver/:serviceId.
func (h *TransactionsHandler) Deliver(c *fiber.Ctx) error {
	id, err := pathID(c, "serviceId", "transaction")
	if err != nil {
		return err
	}
	var req dto.DeliverRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return err
	}

	result, err := h.ledger.Deliver(c.UserContext(), id, req.TransactionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(result)})
}

// Cancel POST /services/cancel/:serviceId.
func (h *TransactionsHandler) Cancel(c *fiber.Ctx) error {
	id, err := pathID(c, "serviceId", "transaction")
	if err != nil {
		return err
	}
	var req dto.CancelRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	result, err := h.ledger.Cancel(c.UserContext(), id, req.Buyer, req.TransactionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(result)})
}

// ListByBuyer GET /services/transactions/:name.
func (h *TransactionsHandler) ListByBuyer(c *fiber.Ctx) error {
	txs, err := h.ledger.ListByBuyer(c.UserContext(), strings.TrimSpace(c.Params("name")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transactionResponses(txs)})
}
