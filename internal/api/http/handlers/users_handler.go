package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	accounts *service.AccountService
	ledger   *service.LedgerService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accounts *service.AccountService, ledger *service.LedgerService) *UsersHandler {
	return &UsersHandler{accounts: accounts, ledger: ledger}
}

// Signup handles POST /signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.Signup(c.UserContext(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// Login handles POST /login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	result, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Name:      result.User.Name,
		Email:     result.User.Email,
		Earnings:  result.User.Earnings,
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
	}})
}

// Logout handles POST /logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.accounts.Logout(c.UserContext(), principal.Session); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "logged out"}})
}

// Earnings handles GET /earnings.
func (h *UsersHandler) Earnings(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	statement, err := h.ledger.Earnings(c.UserContext(), principal.User.Email, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": earningsResponse(statement)})
}
