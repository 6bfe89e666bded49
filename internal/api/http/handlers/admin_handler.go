package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminHandler serves the admin-only aggregate views over all tickets.
// Route-level RequireAdmin gating happens in the router.
type AdminHandler struct {
	service *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(ticketService *service.TicketService) *AdminHandler {
	return &AdminHandler{service: ticketService}
}

// ListTickets GET /admin/tickets?status=&search= lists across all owners.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	status := parseStatusQuery(c)
	tickets, err := h.service.ListTickets(c.Context(), domain.ScopeAll(), status, c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// Summary GET /admin/summary returns system-wide counts.
func (h *AdminHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context(), domain.ScopeAll())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// CategoryBreakdown GET /admin/categories groups all tickets by category.
func (h *AdminHandler) CategoryBreakdown(c *fiber.Ctx) error {
	breakdown, err := h.service.CategoryBreakdown(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CategoryBreakdownResponse{Categories: breakdown}})
}
