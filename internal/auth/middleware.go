package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/repository"
	apperrors "github.com/mesadeayuda/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Middleware resolves the session into a principal and gates routes by
// permission category.
type Middleware struct {
	sessions *SessionManager
	users    repository.UserRepository
	logger   *zap.Logger
}

// NewMiddleware constructs middleware.
func NewMiddleware(sessions *SessionManager, users repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{sessions: sessions, users: users, logger: logger}
}

// LoadPrincipal resolves the session cookie into the current user, if any.
// Inactive or deleted accounts are treated as logged out.
func (m *Middleware) LoadPrincipal(c *fiber.Ctx) error {
	userID, ok := m.sessions.CurrentUserID(c)
	if !ok {
		return c.Next()
	}
	user, err := m.users.GetByID(c.Context(), userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			m.logger.Warn("failed to load session user", zap.Int64("user_id", userID), zap.Error(err))
		}
		_ = m.sessions.SignOut(c)
		return c.Next()
	}
	if !user.Active {
		_ = m.sessions.SignOut(c)
		return c.Next()
	}
	c.Locals(principalKey, user)
	return c.Next()
}

// RequireLogin redirects anonymous browsers to the login page; API callers
// get a plain 401.
func (m *Middleware) RequireLogin(c *fiber.Ctx) error {
	if _, ok := CurrentUser(c); ok {
		return c.Next()
	}
	if isAPIRequest(c) {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.Redirect("/auth/login", fiber.StatusSeeOther)
}

// RequirePermission gates a route on the caller's role level for a category.
func (m *Middleware) RequirePermission(category domain.PermissionCategory, level int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			if isAPIRequest(c) {
				return apperrors.NewUnauthorized("authentication required")
			}
			return c.Redirect("/auth/login", fiber.StatusSeeOther)
		}

		decision := Evaluate(user.Role, category, level)
		if decision.Allowed {
			return c.Next()
		}

		switch decision.Reason {
		case ReasonInsufficient, ReasonNoRole:
			if isAPIRequest(c) {
				return apperrors.NewForbidden("insufficient permissions")
			}
			m.sessions.AddFlash(c, "danger", "No tiene permisos suficientes para acceder a esta sección")
			return c.Redirect("/dashboard", fiber.StatusSeeOther)
		default:
			// unknown category fails closed, even for HTML requests
			return apperrors.NewForbidden("forbidden")
		}
	}
}

// CurrentUser retrieves the authenticated user from request locals.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

func isAPIRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}
