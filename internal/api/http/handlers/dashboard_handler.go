package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/service"
)

// DashboardHandler serves the landing page.
type DashboardHandler struct {
	render  *Renderer
	tickets *service.TicketService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(render *Renderer, tickets *service.TicketService) *DashboardHandler {
	return &DashboardHandler{render: render, tickets: tickets}
}

// Show GET /dashboard.
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	data, err := h.tickets.Dashboard(c.Context(), user)
	if err != nil {
		return err
	}
	return h.render.Render(c, "dashboard", fiber.Map{
		"Title":     "Dashboard",
		"Dashboard": data,
	})
}
