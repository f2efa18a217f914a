package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/service"
)

// AdminRolesHandler serves the role management pages.
type AdminRolesHandler struct {
	render *Renderer
	admin  *service.AdminService
}

// NewAdminRolesHandler constructs handler.
func NewAdminRolesHandler(render *Renderer, admin *service.AdminService) *AdminRolesHandler {
	return &AdminRolesHandler{render: render, admin: admin}
}

// List GET /admin/roles.
func (h *AdminRolesHandler) List(c *fiber.Ctx) error {
	roles, err := h.admin.ListRoles(c.Context())
	if err != nil {
		return err
	}
	return h.render.Render(c, "admin/roles", fiber.Map{
		"Title": "Roles",
		"Roles": roles,
	})
}

// CreateForm GET /admin/roles/create.
func (h *AdminRolesHandler) CreateForm(c *fiber.Ctx) error {
	return h.render.Render(c, "admin/role_form", fiber.Map{
		"Title": "Nuevo Rol",
	})
}

// Create POST /admin/roles/create.
func (h *AdminRolesHandler) Create(c *fiber.Ctx) error {
	if _, err := h.admin.CreateRole(c.Context(), parseRoleInput(c)); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/roles/create", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Rol creado exitosamente")
	return c.Redirect("/admin/roles", fiber.StatusSeeOther)
}

// EditForm GET /admin/roles/:id/edit.
func (h *AdminRolesHandler) EditForm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	role, err := h.admin.GetRole(c.Context(), id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/roles", fiber.StatusSeeOther)
		}
		return err
	}
	return h.render.Render(c, "admin/role_form", fiber.Map{
		"Title": fmt.Sprintf("Editar Rol: %s", role.Name),
		"Role":  role,
	})
}

// Edit POST /admin/roles/:id/edit.
func (h *AdminRolesHandler) Edit(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if _, err := h.admin.UpdateRole(c.Context(), id, parseRoleInput(c)); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect(fmt.Sprintf("/admin/roles/%d/edit", id), fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Rol actualizado exitosamente")
	return c.Redirect("/admin/roles", fiber.StatusSeeOther)
}

// ToggleStatus GET /admin/roles/:id/toggle_status.
func (h *AdminRolesHandler) ToggleStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	role, err := h.admin.ToggleRole(c.Context(), id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/roles", fiber.StatusSeeOther)
		}
		return err
	}
	if role.Active {
		h.render.Flash(c, "success", fmt.Sprintf("Rol %s activado", role.Name))
	} else {
		h.render.Flash(c, "success", fmt.Sprintf("Rol %s desactivado", role.Name))
	}
	return c.Redirect("/admin/roles", fiber.StatusSeeOther)
}

func parseRoleInput(c *fiber.Ctx) service.RoleInput {
	return service.RoleInput{
		Name:            c.FormValue("nombre"),
		Description:     c.FormValue("descripcion"),
		PermTickets:     formInt(c, "perm_tickets"),
		PermUsers:       formInt(c, "perm_users"),
		PermDepartments: formInt(c, "perm_departments"),
		PermAdmin:       formInt(c, "perm_admin"),
	}
}
