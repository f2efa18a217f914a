package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/service"
)

// TicketsHandler serves the ticket pages.
type TicketsHandler struct {
	render  *Renderer
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(render *Renderer, tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{render: render, tickets: tickets}
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	if user.Role == nil {
		h.render.Flash(c, "danger", "Usuario sin rol asignado. Contacte al administrador.")
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	result, err := h.tickets.List(c.Context(), user, service.TicketListInput{
		Status: c.Query("estado", "todos"),
		Page:   page,
	})
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/tickets", fiber.StatusSeeOther)
		}
		return err
	}
	return h.render.Render(c, "tickets/list", fiber.Map{
		"Title": "Tickets",
		"Page":  result,
	})
}

// CreateForm GET /tickets/create.
func (h *TicketsHandler) CreateForm(c *fiber.Ctx) error {
	users, err := h.tickets.AssignableUsers(c.Context())
	if err != nil {
		return err
	}
	return h.render.Render(c, "tickets/create", fiber.Map{
		"Title":      "Nuevo Ticket",
		"Users":      users,
		"Priorities": priorities(),
	})
}

// Create POST /tickets/create.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	input := service.TicketCreateInput{
		Title:          c.FormValue("titulo"),
		Description:    c.FormValue("descripcion"),
		FailureDetails: c.FormValue("detalles_fallo"),
		Priority:       domain.TicketPriority(c.FormValue("prioridad")),
	}
	if assigneeID, ok := formInt64(c, "asignado_a"); ok {
		input.AssigneeID = &assigneeID
	}
	if file, err := c.FormFile("imagen"); err == nil && file != nil && file.Size > 0 {
		input.Image = file
	}

	ticket, err := h.tickets.Create(c.Context(), user, input)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/tickets/create", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Ticket creado exitosamente")
	return c.Redirect(ticketPath(ticket.ID), fiber.StatusSeeOther)
}

// Detail GET /tickets/:id.
func (h *TicketsHandler) Detail(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ticket, comments, err := h.tickets.Get(c.Context(), user, id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/tickets", fiber.StatusSeeOther)
		}
		return err
	}
	return h.render.Render(c, "tickets/detail", fiber.Map{
		"Title":    fmt.Sprintf("Ticket #%d", ticket.ID),
		"Ticket":   ticket,
		"Comments": comments,
		"Statuses": statuses(),
	})
}

// EditForm GET /tickets/:id/edit.
func (h *TicketsHandler) EditForm(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ticket, _, err := h.tickets.Get(c.Context(), user, id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/tickets", fiber.StatusSeeOther)
		}
		return err
	}
	users, err := h.tickets.AssignableUsers(c.Context())
	if err != nil {
		return err
	}
	return h.render.Render(c, "tickets/edit", fiber.Map{
		"Title":      fmt.Sprintf("Editar Ticket #%d", ticket.ID),
		"Ticket":     ticket,
		"Users":      users,
		"Statuses":   statuses(),
		"Priorities": priorities(),
	})
}

// Edit POST /tickets/:id/edit.
func (h *TicketsHandler) Edit(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	input := service.TicketUpdateInput{
		Title:          c.FormValue("titulo"),
		Description:    c.FormValue("descripcion"),
		FailureDetails: c.FormValue("detalles_fallo"),
		Status:         domain.TicketStatus(c.FormValue("estado")),
		Priority:       domain.TicketPriority(c.FormValue("prioridad")),
	}
	if assigneeID, ok := formInt64(c, "asignado_a"); ok {
		input.AssigneeID = &assigneeID
	}

	if _, err := h.tickets.Update(c.Context(), user, id, input); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect(ticketPath(id)+"/edit", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Ticket actualizado exitosamente")
	return c.Redirect(ticketPath(id), fiber.StatusSeeOther)
}

// UpdateStatus POST /tickets/:id/update_status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	status := domain.TicketStatus(c.FormValue("estado"))
	if _, err := h.tickets.UpdateStatus(c.Context(), user, id, status); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect(ticketPath(id), fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Estado del ticket actualizado exitosamente")
	return c.Redirect(ticketPath(id), fiber.StatusSeeOther)
}

// DeleteImage POST /tickets/:id/delete_image.
func (h *TicketsHandler) DeleteImage(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if _, err := h.tickets.DeleteImage(c.Context(), id); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect(ticketPath(id), fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Imagen eliminada")
	return c.Redirect(ticketPath(id), fiber.StatusSeeOther)
}

// Delete POST /tickets/:id/delete.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.Context(), id); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/tickets", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Ticket eliminado")
	return c.Redirect("/tickets", fiber.StatusSeeOther)
}

func ticketPath(id int64) string {
	return fmt.Sprintf("/tickets/%d", id)
}

func statuses() []domain.TicketStatus {
	return []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	}
}

func priorities() []domain.TicketPriority {
	return []domain.TicketPriority{
		domain.TicketPriorityLow,
		domain.TicketPriorityMedium,
		domain.TicketPriorityHigh,
	}
}
