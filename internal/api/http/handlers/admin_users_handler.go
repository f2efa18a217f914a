package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/service"
)

// AdminUsersHandler serves the user management pages.
type AdminUsersHandler struct {
	render *Renderer
	admin  *service.AdminService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(render *Renderer, admin *service.AdminService) *AdminUsersHandler {
	return &AdminUsersHandler{render: render, admin: admin}
}

// List GET /admin/users.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	users, err := h.admin.ListUsers(c.Context())
	if err != nil {
		return err
	}
	return h.render.Render(c, "admin/users", fiber.Map{
		"Title": "Usuarios",
		"Users": users,
	})
}

// CreateForm GET /admin/users/create.
func (h *AdminUsersHandler) CreateForm(c *fiber.Ctx) error {
	bind, err := h.formBind(c, "Nuevo Usuario")
	if err != nil {
		return err
	}
	return h.render.Render(c, "admin/user_form", bind)
}

// Create POST /admin/users/create.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	_, generated, err := h.admin.CreateUser(c.Context(), h.parseInput(c))
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/users/create", fiber.StatusSeeOther)
		}
		return err
	}
	if generated != "" {
		h.render.Flash(c, "success", fmt.Sprintf("Usuario creado. Contraseña generada: %s", generated))
	} else {
		h.render.Flash(c, "success", "Usuario creado exitosamente")
	}
	return c.Redirect("/admin/users", fiber.StatusSeeOther)
}

// EditForm GET /admin/users/:id/edit.
func (h *AdminUsersHandler) EditForm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user, err := h.admin.GetUser(c.Context(), id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/users", fiber.StatusSeeOther)
		}
		return err
	}
	bind, err := h.formBind(c, fmt.Sprintf("Editar Usuario: %s", user.Name))
	if err != nil {
		return err
	}
	bind["User"] = user
	return h.render.Render(c, "admin/user_form", bind)
}

// Edit POST /admin/users/:id/edit.
func (h *AdminUsersHandler) Edit(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if _, err := h.admin.UpdateUser(c.Context(), id, h.parseInput(c)); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect(fmt.Sprintf("/admin/users/%d/edit", id), fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Usuario actualizado exitosamente")
	return c.Redirect("/admin/users", fiber.StatusSeeOther)
}

// ToggleStatus GET /admin/users/:id/toggle_status.
func (h *AdminUsersHandler) ToggleStatus(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user, err := h.admin.ToggleUser(c.Context(), actor, id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/users", fiber.StatusSeeOther)
		}
		return err
	}
	if user.Active {
		h.render.Flash(c, "success", fmt.Sprintf("Usuario %s activado", user.Name))
	} else {
		h.render.Flash(c, "success", fmt.Sprintf("Usuario %s desactivado", user.Name))
	}
	return c.Redirect("/admin/users", fiber.StatusSeeOther)
}

func (h *AdminUsersHandler) parseInput(c *fiber.Ctx) service.UserInput {
	input := service.UserInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	}
	if roleID, ok := formInt64(c, "rol_id"); ok {
		input.RoleID = roleID
	}
	if deptID, ok := formInt64(c, "departamento_id"); ok {
		input.DepartmentID = &deptID
	}
	return input
}

func (h *AdminUsersHandler) formBind(c *fiber.Ctx, title string) (fiber.Map, error) {
	roles, err := h.admin.ActiveRoles(c.Context())
	if err != nil {
		return nil, err
	}
	departments, err := h.admin.ActiveDepartments(c.Context())
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"Title":       title,
		"Roles":       roles,
		"Departments": departments,
	}, nil
}
