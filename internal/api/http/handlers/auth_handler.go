package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/service"
)

// AuthHandler serves login, registration, logout and password flows.
type AuthHandler struct {
	render   *Renderer
	auth     *service.AuthService
	sessions *auth.SessionManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(render *Renderer, authService *service.AuthService, sessions *auth.SessionManager) *AuthHandler {
	return &AuthHandler{render: render, auth: authService, sessions: sessions}
}

// LoginForm GET /auth/login.
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if _, ok := auth.CurrentUser(c); ok {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return h.render.Render(c, "auth/login", fiber.Map{"Title": "Iniciar Sesión"})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if _, ok := auth.CurrentUser(c); ok {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	user, err := h.auth.Login(c.Context(), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/auth/login", fiber.StatusSeeOther)
		}
		return err
	}
	if err := h.sessions.SignIn(c, user.ID); err != nil {
		return err
	}
	h.render.Flash(c, "success", "¡Inicio de sesión exitoso!")
	next := c.Query("next")
	if next == "" || next[0] != '/' {
		next = "/dashboard"
	}
	return c.Redirect(next, fiber.StatusSeeOther)
}

// RegisterForm GET /auth/register.
func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	if _, ok := auth.CurrentUser(c); ok {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return h.render.Render(c, "auth/register", fiber.Map{"Title": "Registro"})
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	if _, ok := auth.CurrentUser(c); ok {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	_, err := h.auth.Register(c.Context(), c.FormValue("name"), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/auth/register", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "¡Registro exitoso! Ya puede iniciar sesión.")
	return c.Redirect("/auth/login", fiber.StatusSeeOther)
}

// Logout GET /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.SignOut(c); err != nil {
		return err
	}
	h.render.Flash(c, "info", "Ha cerrado sesión exitosamente.")
	return c.Redirect("/auth/login", fiber.StatusSeeOther)
}

// ResetRequestForm GET /auth/reset.
func (h *AuthHandler) ResetRequestForm(c *fiber.Ctx) error {
	return h.render.Render(c, "auth/reset_request", fiber.Map{"Title": "Restablecer Contraseña"})
}

// ResetRequest POST /auth/reset.
func (h *AuthHandler) ResetRequest(c *fiber.Ctx) error {
	if err := h.auth.RequestPasswordReset(c.Context(), c.FormValue("email")); err != nil {
		return err
	}
	h.render.Flash(c, "info", "Si el email existe, recibirá un enlace para restablecer su contraseña.")
	return c.Redirect("/auth/login", fiber.StatusSeeOther)
}

// ResetConfirmForm GET /auth/reset/confirm.
func (h *AuthHandler) ResetConfirmForm(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		h.render.Flash(c, "danger", "El enlace de restablecimiento es inválido o expiró")
		return c.Redirect("/auth/login", fiber.StatusSeeOther)
	}
	return h.render.Render(c, "auth/reset_confirm", fiber.Map{
		"Title": "Nueva Contraseña",
		"Token": token,
	})
}

// ResetConfirm POST /auth/reset/confirm.
func (h *AuthHandler) ResetConfirm(c *fiber.Ctx) error {
	err := h.auth.ConfirmPasswordReset(c.Context(), c.FormValue("token"), c.FormValue("password"))
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/auth/login", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Contraseña actualizada. Ya puede iniciar sesión.")
	return c.Redirect("/auth/login", fiber.StatusSeeOther)
}

// ChangePassword POST /password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	err := h.auth.ChangePassword(c.Context(), user, c.FormValue("current_password"), c.FormValue("new_password"))
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/dashboard", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Contraseña actualizada")
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}
