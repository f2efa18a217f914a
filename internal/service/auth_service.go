package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/config"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/mailer"
	"github.com/mesadeayuda/helpdesk/internal/observability"
	"github.com/mesadeayuda/helpdesk/internal/repository"
	"github.com/mesadeayuda/helpdesk/pkg/util"
)

const defaultRoleName = "Usuario"

// AuthService coordinates registration, login and password flows.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	resets     *auth.ResetTokenManager
	mail       mailer.Mailer
	messages   *mailer.Builder
	logger     *zap.Logger
	metrics    *observability.Metrics
	bcryptCost int
}

// AuthDependencies bundles requirements for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	RoleRepo repository.RoleRepository
	Mailer   mailer.Mailer
	Messages *mailer.Builder
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		resets:     auth.NewResetTokenManager(cfg.Auth.SecretKey, cfg.Auth.PasswordResetTTLMinutes),
		mail:       deps.Mailer,
		messages:   deps.Messages,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates an account with the default role, creating that role on
// first use.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, util.NewValidationError("nombre, email y contraseña son obligatorios", nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, util.NewConflict("El email ya está registrado", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// Login validates credentials and the active flag. The same error message
// covers unknown email and bad password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("Email o contraseña incorrectos")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, util.NewUnauthorized("Email o contraseña incorrectos")
	}
	if !user.Active {
		return nil, util.NewForbidden("Cuenta desactivada. Contacte al administrador.")
	}
	return user, nil
}

// RequestPasswordReset emails a signed reset link. To avoid leaking which
// emails exist, an unknown address is not an error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if !user.Active || user.Email == "" {
		return nil
	}
	token, err := s.resets.Generate(user.ID)
	if err != nil {
		return err
	}
	msg := s.messages.PasswordReset(user, token)
	go s.deliver(msg)
	return nil
}

// ConfirmPasswordReset validates the token and stores the new hash.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return util.NewValidationError("la contraseña es obligatoria", nil)
	}
	userID, err := s.resets.Validate(token)
	if err != nil {
		return util.NewUnauthorized("El enlace de restablecimiento es inválido o expiró")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewUnauthorized("El enlace de restablecimiento es inválido o expiró")
		}
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// ChangePassword rehashes for the logged-in principal after verifying the
// current password.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, current, next string) error {
	if next == "" {
		return util.NewValidationError("la nueva contraseña es obligatoria", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
		return util.NewUnauthorized("La contraseña actual no es correcta")
	}
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

func (s *AuthService) defaultRole(ctx context.Context) (*domain.Role, error) {
	role, err := s.roles.GetByName(ctx, defaultRoleName)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	role = &domain.Role{
		Name:            defaultRoleName,
		Description:     "Usuario normal del sistema",
		PermTickets:     domain.PermWrite,
		PermUsers:       domain.PermNone,
		PermDepartments: domain.PermNone,
		PermAdmin:       domain.PermNone,
		Active:          true,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *AuthService) deliver(msg mailer.Message) {
	err := s.mail.Send(msg)
	if s.metrics != nil {
		s.metrics.RecordMail(err == nil)
	}
	if err != nil {
		s.logger.Error("error enviando correo",
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}
