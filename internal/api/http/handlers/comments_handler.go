package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/service"
	apperrors "github.com/mesadeayuda/helpdesk/pkg/util"
)

// CommentsHandler serves the JSON comment API.
type CommentsHandler struct {
	tickets  *service.TicketService
	location *time.Location
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(tickets *service.TicketService, location *time.Location) *CommentsHandler {
	if location == nil {
		location = time.UTC
	}
	return &CommentsHandler{tickets: tickets, location: location}
}

type commentRequest struct {
	Content string `json:"content"`
}

// Create POST /api/tickets/:id/comment.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return apperrors.NewValidationError("Contenido requerido", nil)
	}
	comment, err := h.tickets.AddComment(c.Context(), user, id, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"comment": fiber.Map{
			"id":         comment.ID,
			"content":    comment.Content,
			"user_name":  comment.AuthorName,
			"created_at": comment.CreatedAt.In(h.location).Format("2006-01-02 15:04"),
		},
	})
}
