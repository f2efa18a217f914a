package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	apperrors "github.com/mesadeayuda/helpdesk/pkg/util"
)

// Renderer wraps template rendering with the bind values every page needs:
// the authenticated user and any pending flash messages.
type Renderer struct {
	sessions *auth.SessionManager
}

// NewRenderer constructs the shared renderer.
func NewRenderer(sessions *auth.SessionManager) *Renderer {
	return &Renderer{sessions: sessions}
}

// Render draws a template inside the layout.
func (r *Renderer) Render(c *fiber.Ctx, name string, bind fiber.Map) error {
	if bind == nil {
		bind = fiber.Map{}
	}
	if user, ok := auth.CurrentUser(c); ok {
		bind["CurrentUser"] = user
	}
	bind["Flashes"] = r.sessions.ConsumeFlashes(c)
	return c.Render(name, bind, "layout")
}

// Flash queues a one-shot message for the next rendered page.
func (r *Renderer) Flash(c *fiber.Ctx, category, message string) {
	r.sessions.AddFlash(c, category, message)
}

// FlashError queues the human-readable side of an error and reports whether
// it was a client-level failure. Internal errors are not flashed so the
// middleware error page handles them.
func (r *Renderer) FlashError(c *fiber.Ctx, err error) bool {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= 500 {
		return false
	}
	r.Flash(c, "danger", domainErr.Message)
	return true
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("recurso", nil)
	}
	return id, nil
}

func formInt64(c *fiber.Ctx, field string) (int64, bool) {
	raw := c.FormValue(field)
	if raw == "" || raw == "0" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func formInt(c *fiber.Ctx, field string) int {
	v, err := strconv.Atoi(c.FormValue(field))
	if err != nil {
		return 0
	}
	return v
}
