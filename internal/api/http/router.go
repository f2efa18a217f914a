package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/api/http/handlers"
	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Dashboard  *handlers.DashboardHandler
	Tickets    *handlers.TicketsHandler
	Comments   *handlers.CommentsHandler
	Uploads    *handlers.UploadsHandler
	AdminUsers *handlers.AdminUsersHandler
	AdminDepts *handlers.AdminDepartmentsHandler
	AdminRoles *handlers.AdminRolesHandler
	Reports    *handlers.ReportsHandler
	Middleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.Middleware.LoadPrincipal)

	authGroup := app.Group("/auth")
	authGroup.Get("/login", cfg.Auth.LoginForm)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/register", cfg.Auth.RegisterForm)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Get("/logout", cfg.Auth.Logout)
	authGroup.Get("/reset", cfg.Auth.ResetRequestForm)
	authGroup.Post("/reset", cfg.Auth.ResetRequest)
	authGroup.Get("/reset/confirm", cfg.Auth.ResetConfirmForm)
	authGroup.Post("/reset/confirm", cfg.Auth.ResetConfirm)

	requireLogin := cfg.Middleware.RequireLogin
	app.Get("/", requireLogin, cfg.Dashboard.Show)
	app.Get("/dashboard", requireLogin, cfg.Dashboard.Show)
	app.Post("/password/change", requireLogin, cfg.Auth.ChangePassword)

	ticketRead := cfg.Middleware.RequirePermission(domain.CategoryTickets, domain.PermRead)
	ticketWrite := cfg.Middleware.RequirePermission(domain.CategoryTickets, domain.PermWrite)

	tickets := app.Group("/tickets", requireLogin)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/create", ticketWrite, cfg.Tickets.CreateForm)
	tickets.Post("/create", ticketWrite, cfg.Tickets.Create)
	tickets.Get("/:id", ticketRead, cfg.Tickets.Detail)
	tickets.Get("/:id/edit", ticketWrite, cfg.Tickets.EditForm)
	tickets.Post("/:id/edit", ticketWrite, cfg.Tickets.Edit)
	tickets.Post("/:id/update_status", ticketWrite, cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/delete_image", ticketWrite, cfg.Tickets.DeleteImage)
	tickets.Post("/:id/delete", ticketWrite, cfg.Tickets.Delete)

	app.Get("/uploads/:filename", requireLogin, cfg.Uploads.Serve)

	api := app.Group("/api", requireLogin)
	api.Post("/tickets/:id/comment", ticketRead, cfg.Comments.Create)

	userRead := cfg.Middleware.RequirePermission(domain.CategoryUsers, domain.PermRead)
	userWrite := cfg.Middleware.RequirePermission(domain.CategoryUsers, domain.PermWrite)
	deptRead := cfg.Middleware.RequirePermission(domain.CategoryDepartments, domain.PermRead)
	deptWrite := cfg.Middleware.RequirePermission(domain.CategoryDepartments, domain.PermWrite)
	adminOnly := cfg.Middleware.RequirePermission(domain.CategoryAdmin, domain.PermRead)
	adminWrite := cfg.Middleware.RequirePermission(domain.CategoryAdmin, domain.PermWrite)

	admin := app.Group("/admin", requireLogin)
	admin.Get("/users", userRead, cfg.AdminUsers.List)
	admin.Get("/users/create", userWrite, cfg.AdminUsers.CreateForm)
	admin.Post("/users/create", userWrite, cfg.AdminUsers.Create)
	admin.Get("/users/:id/edit", userWrite, cfg.AdminUsers.EditForm)
	admin.Post("/users/:id/edit", userWrite, cfg.AdminUsers.Edit)
	admin.Get("/users/:id/toggle_status", userWrite, cfg.AdminUsers.ToggleStatus)

	admin.Get("/departments", deptRead, cfg.AdminDepts.List)
	admin.Get("/departments/create", deptWrite, cfg.AdminDepts.CreateForm)
	admin.Post("/departments/create", deptWrite, cfg.AdminDepts.Create)
	admin.Get("/departments/:id/edit", deptWrite, cfg.AdminDepts.EditForm)
	admin.Post("/departments/:id/edit", deptWrite, cfg.AdminDepts.Edit)
	admin.Get("/departments/:id/toggle_status", deptWrite, cfg.AdminDepts.ToggleStatus)

	admin.Get("/roles", adminOnly, cfg.AdminRoles.List)
	admin.Get("/roles/create", adminWrite, cfg.AdminRoles.CreateForm)
	admin.Post("/roles/create", adminWrite, cfg.AdminRoles.Create)
	admin.Get("/roles/:id/edit", adminWrite, cfg.AdminRoles.EditForm)
	admin.Post("/roles/:id/edit", adminWrite, cfg.AdminRoles.Edit)
	admin.Get("/roles/:id/toggle_status", adminWrite, cfg.AdminRoles.ToggleStatus)

	reports := app.Group("/reports", requireLogin, adminOnly)
	reports.Get("/users.pdf", cfg.Reports.UsersPDF)
	reports.Get("/departments.pdf", cfg.Reports.DepartmentsPDF)
}
