package main

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/config"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/observability"
	"github.com/mesadeayuda/helpdesk/internal/persistence"
	"github.com/mesadeayuda/helpdesk/internal/repository"
)

// Seeds the stock roles, sample departments and a default admin account.
// Safe to rerun: existing rows are left alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pool := pg.PoolHandle()
	roleRepo := repository.NewRoleRepository(pool)
	deptRepo := repository.NewDepartmentRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	roles := []domain.Role{
		{Name: "Administrador", Description: "Acceso completo al sistema", PermTickets: 2, PermUsers: 2, PermDepartments: 2, PermAdmin: 2, Active: true},
		{Name: "Técnico", Description: "Puede gestionar tickets y usuarios", PermTickets: 2, PermUsers: 1, PermDepartments: 1, PermAdmin: 0, Active: true},
		{Name: "Usuario", Description: "Usuario normal del sistema", PermTickets: 2, PermUsers: 0, PermDepartments: 0, PermAdmin: 0, Active: true},
		{Name: "Solo Lectura", Description: "Solo puede ver información", PermTickets: 1, PermUsers: 1, PermDepartments: 1, PermAdmin: 0, Active: true},
	}
	for i := range roles {
		role := roles[i]
		if _, err := roleRepo.GetByName(ctx, role.Name); err == nil {
			continue
		} else if !errors.Is(err, pgx.ErrNoRows) {
			logger.Fatal("failed to check role", zap.String("role", role.Name), zap.Error(err))
		}
		if err := roleRepo.Create(ctx, &role); err != nil {
			logger.Fatal("failed to create role", zap.String("role", role.Name), zap.Error(err))
		}
		logger.Info("role created", zap.String("role", role.Name))
	}

	departments := []domain.Department{
		{Name: "Soporte Técnico", Description: "Departamento de soporte técnico y helpdesk"},
		{Name: "Desarrollo", Description: "Departamento de desarrollo de software"},
		{Name: "Infraestructura", Description: "Departamento de infraestructura IT"},
		{Name: "Administración", Description: "Departamento administrativo"},
		{Name: "Redes", Description: "Departamento de redes y comunicaciones"},
	}
	existing, err := deptRepo.List(ctx)
	if err != nil {
		logger.Fatal("failed to list departments", zap.Error(err))
	}
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Name] = true
	}
	for i := range departments {
		dept := departments[i]
		if known[dept.Name] {
			continue
		}
		dept.Active = true
		dept.CreatedBy = "Sistema"
		if err := deptRepo.Create(ctx, &dept); err != nil {
			logger.Fatal("failed to create department", zap.String("department", dept.Name), zap.Error(err))
		}
		logger.Info("department created", zap.String("department", dept.Name))
	}

	adminEmail := "admin@tickets.com"
	if _, err := userRepo.GetByEmail(ctx, adminEmail); err == nil {
		logger.Info("admin user already present", zap.String("email", adminEmail))
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		logger.Fatal("failed to check admin user", zap.Error(err))
	}

	adminRole, err := roleRepo.GetByName(ctx, "Administrador")
	if err != nil {
		logger.Fatal("failed to load admin role", zap.Error(err))
	}
	hash, err := auth.HashPassword("admin123", cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}
	admin := &domain.User{
		Name:         "Administrador Principal",
		Email:        adminEmail,
		PasswordHash: hash,
		RoleID:       adminRole.ID,
		Active:       true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		logger.Fatal("failed to create admin user", zap.Error(err))
	}
	logger.Info("admin user created", zap.String("email", adminEmail))
}
