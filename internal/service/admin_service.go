package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/repository"
	"github.com/mesadeayuda/helpdesk/pkg/util"
)

const generatedPasswordLength = 12

// AdminService covers user, department and role management.
type AdminService struct {
	users       repository.UserRepository
	roles       repository.RoleRepository
	departments repository.DepartmentRepository
	bcryptCost  int
}

// AdminDependencies bundles requirements for the admin service.
type AdminDependencies struct {
	UserRepo       repository.UserRepository
	RoleRepo       repository.RoleRepository
	DepartmentRepo repository.DepartmentRepository
	BcryptCost     int
}

// UserInput is the admin user form payload. An empty Password on create
// means "generate one".
type UserInput struct {
	Name         string
	Email        string
	Password     string
	RoleID       int64
	DepartmentID *int64
}

// DepartmentInput is the department form payload.
type DepartmentInput struct {
	Name        string
	Description string
}

// RoleInput is the role form payload.
type RoleInput struct {
	Name            string
	Description     string
	PermTickets     int
	PermUsers       int
	PermDepartments int
	PermAdmin       int
}

// NewAdminService builds the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		users:       deps.UserRepo,
		roles:       deps.RoleRepo,
		departments: deps.DepartmentRepo,
		bcryptCost:  deps.BcryptCost,
	}
}

// ---- users ----

// ListUsers returns every account, active or not.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// GetUser fetches one account.
func (s *AdminService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("usuario", map[string]any{"id": id})
		}
		return nil, err
	}
	return user, nil
}

// CreateUser registers an account from the admin form. When the password is
// blank one is generated and returned so the admin can hand it over.
func (s *AdminService) CreateUser(ctx context.Context, input UserInput) (*domain.User, string, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if name == "" || email == "" {
		return nil, "", util.NewValidationError("nombre y email son obligatorios", nil)
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, "", err
	}
	if _, err := s.getRole(ctx, input.RoleID); err != nil {
		return nil, "", err
	}
	if input.DepartmentID != nil {
		if _, err := s.GetDepartment(ctx, *input.DepartmentID); err != nil {
			return nil, "", err
		}
	}

	password := input.Password
	generated := ""
	if password == "" {
		var err error
		password, err = auth.GeneratePassword(generatedPasswordLength)
		if err != nil {
			return nil, "", err
		}
		generated = password
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		RoleID:       input.RoleID,
		DepartmentID: input.DepartmentID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	return user, generated, nil
}

// UpdateUser applies the admin edit form. A blank password keeps the current
// hash.
func (s *AdminService) UpdateUser(ctx context.Context, id int64, input UserInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if name == "" || email == "" {
		return nil, util.NewValidationError("nombre y email son obligatorios", nil)
	}
	if email != user.Email {
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
	}
	if _, err := s.getRole(ctx, input.RoleID); err != nil {
		return nil, err
	}
	if input.DepartmentID != nil {
		if _, err := s.GetDepartment(ctx, *input.DepartmentID); err != nil {
			return nil, err
		}
	}

	user.Name = name
	user.Email = email
	user.RoleID = input.RoleID
	user.DepartmentID = input.DepartmentID
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleUser flips the active flag. Admins cannot deactivate themselves.
func (s *AdminService) ToggleUser(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if actor.ID == id {
		return nil, util.NewBusinessRuleViolation("No puede desactivar su propia cuenta")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Active = !user.Active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ---- departments ----

// ListDepartments returns every department.
func (s *AdminService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.List(ctx)
}

// ActiveDepartments feeds form selects.
func (s *AdminService) ActiveDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.ListActive(ctx)
}

// GetDepartment fetches one department.
func (s *AdminService) GetDepartment(ctx context.Context, id int64) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("departamento", map[string]any{"id": id})
		}
		return nil, err
	}
	return dept, nil
}

// CreateDepartment registers a department.
func (s *AdminService) CreateDepartment(ctx context.Context, actor *domain.User, input DepartmentInput) (*domain.Department, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, util.NewValidationError("el nombre es obligatorio", nil)
	}
	dept := &domain.Department{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Active:      true,
		CreatedBy:   actor.Name,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// UpdateDepartment applies the edit form.
func (s *AdminService) UpdateDepartment(ctx context.Context, id int64, input DepartmentInput) (*domain.Department, error) {
	dept, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, util.NewValidationError("el nombre es obligatorio", nil)
	}
	dept.Name = name
	dept.Description = strings.TrimSpace(input.Description)
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// ToggleDepartment flips the active flag.
func (s *AdminService) ToggleDepartment(ctx context.Context, id int64) (*domain.Department, error) {
	dept, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	dept.Active = !dept.Active
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// ---- roles ----

// ListRoles returns every role.
func (s *AdminService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

// ActiveRoles feeds form selects.
func (s *AdminService) ActiveRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.ListActive(ctx)
}

// GetRole fetches one role.
func (s *AdminService) GetRole(ctx context.Context, id int64) (*domain.Role, error) {
	return s.getRole(ctx, id)
}

// CreateRole registers a permission profile.
func (s *AdminService) CreateRole(ctx context.Context, input RoleInput) (*domain.Role, error) {
	role, err := s.buildRole(&domain.Role{Active: true}, input)
	if err != nil {
		return nil, err
	}
	if _, err := s.roles.GetByName(ctx, role.Name); err == nil {
		return nil, util.NewConflict("Ya existe un rol con ese nombre", map[string]any{"name": role.Name})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole applies the edit form.
func (s *AdminService) UpdateRole(ctx context.Context, id int64, input RoleInput) (*domain.Role, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.buildRole(role, input); err != nil {
		return nil, err
	}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ToggleRole flips the active flag.
func (s *AdminService) ToggleRole(ctx context.Context, id int64) (*domain.Role, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}
	role.Active = !role.Active
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *AdminService) buildRole(role *domain.Role, input RoleInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, util.NewValidationError("el nombre es obligatorio", nil)
	}
	for _, level := range []int{input.PermTickets, input.PermUsers, input.PermDepartments, input.PermAdmin} {
		if !domain.ValidPermissionLevel(level) {
			return nil, util.NewValidationError("los niveles de permiso deben estar entre 0 y 2", nil)
		}
	}
	role.Name = name
	role.Description = strings.TrimSpace(input.Description)
	role.PermTickets = input.PermTickets
	role.PermUsers = input.PermUsers
	role.PermDepartments = input.PermDepartments
	role.PermAdmin = input.PermAdmin
	return role, nil
}

func (s *AdminService) getRole(ctx context.Context, id int64) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("rol", map[string]any{"id": id})
		}
		return nil, err
	}
	return role, nil
}

func (s *AdminService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return util.NewConflict("El email ya está registrado", map[string]any{"email": email})
}
