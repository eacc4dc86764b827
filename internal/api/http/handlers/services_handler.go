package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// ServicesHandler manages listing endpoints.
type ServicesHandler struct {
	catalog *service.CatalogService
}

// NewServicesHandler constructs handler.
func NewServicesHandler(catalog *service.CatalogService) *ServicesHandler {
	return &ServicesHandler{catalog: catalog}
}

// Create POST /services.
func (h *ServicesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewForbidden("missing authorization token")
	}
	var req dto.CreateServiceRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	price, err := parseDecimalField(req.Price, "price")
	if err != nil {
		return err
	}
	deadline, err := parseIntField(req.Deadline, "deadline")
	if err != nil {
		return err
	}

	svc, err := h.catalog.Create(c.UserContext(), principal.User.Email, service.ServiceCreateInput{
		Name:        req.ServiceName,
		Description: req.ServiceDescription,
		Category:    req.Category,
		Price:       price,
		Deadline:    deadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": serviceResponse(svc)})
}

// ListActive GET /services.
func (h *ServicesHandler) ListActive(c *fiber.Ctx) error {
	services, err := h.catalog.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceResponses(services)})
}

// ListByCreatorEmail GET /services/:creatorEmail.
func (h *ServicesHandler) ListByCreatorEmail(c *fiber.Ctx) error {
	services, err := h.catalog.ListByCreatorEmail(c.UserContext(), c.Params("creatorEmail"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceResponses(services)})
}

// ListByCreatorName GET /services/user/:creator.
func (h *ServicesHandler) ListByCreatorName(c *fiber.Ctx) error {
	services, err := h.catalog.ListByCreatorName(c.UserContext(), c.Params("creator"))
	if err != nil {
		return err
	}
	body := fiber.Map{"data": serviceResponses(services)}
	if len(services) == 0 {
		body["message"] = "user has no services"
	}
	return c.JSON(body)
}

// Deactivate POST /services/deactivate/:serviceId.
func (h *ServicesHandler) Deactivate(c *fiber.Ctx) error {
	return h.toggle(c, false)
}

// Activate POST /services/activate/:serviceId.
func (h *ServicesHandler) Activate(c *fiber.Ctx) error {
	return h.toggle(c, true)
}

func (h *ServicesHandler) toggle(c *fiber.Ctx, active bool) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewForbidden("missing authorization token")
	}
	id, err := pathID(c, "serviceId", "service")
	if err != nil {
		return err
	}

	toggle := h.catalog.Deactivate
	if active {
		toggle = h.catalog.Activate
	}
	svc, err := toggle(c.UserContext(), id, principal.User.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceResponse(svc)})
}
