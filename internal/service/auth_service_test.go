package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/config"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/mailer"
	"github.com/mesadeayuda/helpdesk/pkg/util"
)

func newAuthService(users *fakeUserRepo, roles *fakeRoleRepo, mail *recordingMailer) *AuthService {
	cfg := config.Config{
		Auth: config.AuthConfig{
			SecretKey:               "test-secret",
			BcryptCost:              4,
			PasswordResetTTLMinutes: 15,
		},
	}
	return NewAuthService(cfg, AuthDependencies{
		UserRepo: users,
		RoleRepo: roles,
		Mailer:   mail,
		Messages: mailer.NewBuilder("http://localhost:8080"),
		Logger:   zap.NewNop(),
	})
}

func TestRegisterCreatesDefaultRoleOnFirstUse(t *testing.T) {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	svc := newAuthService(users, roles, newRecordingMailer())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana Soto", "ANA@Example.com ", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.Active)
	require.NotNil(t, user.Role)
	assert.Equal(t, "Usuario", user.Role.Name)
	assert.Equal(t, domain.PermWrite, user.Role.PermTickets)
	assert.Equal(t, domain.PermNone, user.Role.PermAdmin)

	// second registration reuses the role
	other, err := svc.Register(ctx, "Luis Rojas", "luis@example.com", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, user.RoleID, other.RoleID)

	stored, err := roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo(testUser(1, "Ana Soto", userRole))
	svc := newAuthService(users, newFakeRoleRepo(userRole), newRecordingMailer())

	_, err := svc.Register(context.Background(), "Otra", "ana.soto@example.com", "secreto123")
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 409, domainErr.HTTPStatus)
	assert.Equal(t, "El email ya está registrado", domainErr.Message)
}

func TestLoginSameMessageForUnknownEmailAndBadPassword(t *testing.T) {
	hash, err := auth.HashPassword("secreto123", 4)
	require.NoError(t, err)
	user := testUser(1, "Ana Soto", userRole)
	user.PasswordHash = hash
	svc := newAuthService(newFakeUserRepo(user), newFakeRoleRepo(userRole), newRecordingMailer())
	ctx := context.Background()

	_, unknownErr := svc.Login(ctx, "nadie@example.com", "secreto123")
	require.Error(t, unknownErr)
	_, badPassErr := svc.Login(ctx, user.Email, "incorrecta")
	require.Error(t, badPassErr)
	assert.Equal(t, util.ToDomainError(unknownErr).Message, util.ToDomainError(badPassErr).Message)
	assert.Equal(t, 401, util.ToDomainError(badPassErr).HTTPStatus)

	got, err := svc.Login(ctx, strings.ToUpper(user.Email), "secreto123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	hash, err := auth.HashPassword("secreto123", 4)
	require.NoError(t, err)
	user := testUser(1, "Ana Soto", userRole)
	user.PasswordHash = hash
	user.Active = false
	svc := newAuthService(newFakeUserRepo(user), newFakeRoleRepo(userRole), newRecordingMailer())

	_, loginErr := svc.Login(context.Background(), user.Email, "secreto123")
	require.Error(t, loginErr)
	assert.Equal(t, 403, util.ToDomainError(loginErr).HTTPStatus)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("vieja123", 4)
	require.NoError(t, err)
	user := testUser(1, "Ana Soto", userRole)
	user.PasswordHash = hash
	users := newFakeUserRepo(user)
	mail := newRecordingMailer()
	svc := newAuthService(users, newFakeRoleRepo(userRole), mail)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, user.Email))
	msgs := mail.waitFor(t, 1)
	assert.Equal(t, []string{user.Email}, msgs[0].To)

	// pull the token out of the emailed link
	body := msgs[0].TextBody
	idx := strings.Index(body, "token=")
	require.GreaterOrEqual(t, idx, 0)
	token := body[idx+len("token="):]
	if end := strings.IndexAny(token, "\n \t"); end >= 0 {
		token = token[:end]
	}

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token, "nueva456"))
	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePassword(stored.PasswordHash, "nueva456"))
	assert.Error(t, auth.ComparePassword(stored.PasswordHash, "vieja123"))
}

func TestPasswordResetSilentForUnknownEmail(t *testing.T) {
	mail := newRecordingMailer()
	svc := newAuthService(newFakeUserRepo(), newFakeRoleRepo(), mail)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nadie@example.com"))
	mail.noMore(t)
}

func TestConfirmPasswordResetRejectsBadToken(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), newFakeRoleRepo(), newRecordingMailer())

	err := svc.ConfirmPasswordReset(context.Background(), "basura", "nueva456")
	require.Error(t, err)
	assert.Equal(t, 401, util.ToDomainError(err).HTTPStatus)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	hash, err := auth.HashPassword("vieja123", 4)
	require.NoError(t, err)
	user := testUser(1, "Ana Soto", userRole)
	user.PasswordHash = hash
	users := newFakeUserRepo(user)
	svc := newAuthService(users, newFakeRoleRepo(userRole), newRecordingMailer())
	ctx := context.Background()

	changeErr := svc.ChangePassword(ctx, &user, "equivocada", "nueva456")
	require.Error(t, changeErr)
	assert.Equal(t, 401, util.ToDomainError(changeErr).HTTPStatus)

	require.NoError(t, svc.ChangePassword(ctx, &user, "vieja123", "nueva456"))
	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePassword(stored.PasswordHash, "nueva456"))
}
