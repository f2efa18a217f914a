package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/service"
)

// AdminDepartmentsHandler serves the department management pages.
type AdminDepartmentsHandler struct {
	render *Renderer
	admin  *service.AdminService
}

// NewAdminDepartmentsHandler constructs handler.
func NewAdminDepartmentsHandler(render *Renderer, admin *service.AdminService) *AdminDepartmentsHandler {
	return &AdminDepartmentsHandler{render: render, admin: admin}
}

// List GET /admin/departments.
func (h *AdminDepartmentsHandler) List(c *fiber.Ctx) error {
	departments, err := h.admin.ListDepartments(c.Context())
	if err != nil {
		return err
	}
	return h.render.Render(c, "admin/departments", fiber.Map{
		"Title":       "Departamentos",
		"Departments": departments,
	})
}

// CreateForm GET /admin/departments/create.
func (h *AdminDepartmentsHandler) CreateForm(c *fiber.Ctx) error {
	return h.render.Render(c, "admin/department_form", fiber.Map{
		"Title": "Nuevo Departamento",
	})
}

// Create POST /admin/departments/create.
func (h *AdminDepartmentsHandler) Create(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	input := service.DepartmentInput{
		Name:        c.FormValue("nombre"),
		Description: c.FormValue("descripcion"),
	}
	if _, err := h.admin.CreateDepartment(c.Context(), actor, input); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/departments/create", fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Departamento creado exitosamente")
	return c.Redirect("/admin/departments", fiber.StatusSeeOther)
}

// EditForm GET /admin/departments/:id/edit.
func (h *AdminDepartmentsHandler) EditForm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	dept, err := h.admin.GetDepartment(c.Context(), id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/departments", fiber.StatusSeeOther)
		}
		return err
	}
	return h.render.Render(c, "admin/department_form", fiber.Map{
		"Title":      fmt.Sprintf("Editar Departamento: %s", dept.Name),
		"Department": dept,
	})
}

// Edit POST /admin/departments/:id/edit.
func (h *AdminDepartmentsHandler) Edit(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	input := service.DepartmentInput{
		Name:        c.FormValue("nombre"),
		Description: c.FormValue("descripcion"),
	}
	if _, err := h.admin.UpdateDepartment(c.Context(), id, input); err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect(fmt.Sprintf("/admin/departments/%d/edit", id), fiber.StatusSeeOther)
		}
		return err
	}
	h.render.Flash(c, "success", "Departamento actualizado exitosamente")
	return c.Redirect("/admin/departments", fiber.StatusSeeOther)
}

// ToggleStatus GET /admin/departments/:id/toggle_status.
func (h *AdminDepartmentsHandler) ToggleStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	dept, err := h.admin.ToggleDepartment(c.Context(), id)
	if err != nil {
		if h.render.FlashError(c, err) {
			return c.Redirect("/admin/departments", fiber.StatusSeeOther)
		}
		return err
	}
	if dept.Active {
		h.render.Flash(c, "success", fmt.Sprintf("Departamento %s activado", dept.Name))
	} else {
		h.render.Flash(c, "success", fmt.Sprintf("Departamento %s desactivado", dept.Name))
	}
	return c.Redirect("/admin/departments", fiber.StatusSeeOther)
}
