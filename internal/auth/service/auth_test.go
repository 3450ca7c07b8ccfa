package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paycore/payroll-backend/internal/auth/jwt"
	"github.com/paycore/payroll-backend/internal/auth/repository"
	"github.com/paycore/payroll-backend/internal/auth/service"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/config"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/testutil"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.t }

func newAuthService(t *testing.T) (*service.AuthService, *jwt.Manager) {
	t.Helper()
	suite := testutil.NewSuite(t)

	jwtMgr := jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: time.Hour,
		Issuer:       "payroll-test",
	})
	clock := fixedClock{t: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)}

	svc := service.NewAuthService(repository.NewUserRepository(suite.DB), jwtMgr, clock, suite.Logger)
	return svc, jwtMgr
}

func adminCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{Username: "admin", Role: actor.RoleAdmin})
}

func operatorCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{Username: "op", Role: actor.RoleOperator})
}

func TestLoginBootstrapAdmin(t *testing.T) {
	svc, jwtMgr := newAuthService(t)

	result, err := svc.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	assert.Equal(t, "admin", result.Username)
	assert.Equal(t, actor.RoleAdmin, result.Role)
	assert.NotEmpty(t, result.Token)

	claims, err := jwtMgr.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, actor.RoleAdmin, claims.Role)
}

func TestLoginBadPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	require.Error(t, err)
	// Unknown user and bad password are indistinguishable to the caller.
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestAddUserAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)

	user, err := svc.AddUser(adminCtx(), "operator1", "secret123", actor.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20 10:00:00", user.CreatedAt)

	result, err := svc.Login(context.Background(), "operator1", "secret123")
	require.NoError(t, err)
	assert.Equal(t, actor.RoleOperator, result.Role)
}

func TestAddUserRequiresAdmin(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.AddUser(operatorCtx(), "newuser", "secret123", actor.RoleOperator)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestAddUserValidation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := adminCtx()

	_, err := svc.AddUser(ctx, "bad name", "secret123", actor.RoleOperator)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.AddUser(ctx, "newuser", "short", actor.RoleOperator)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.AddUser(ctx, "newuser", "secret123", "root")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAddUserDuplicateUsername(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.AddUser(adminCtx(), "admin", "secret123", actor.RoleOperator)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.AddUser(adminCtx(), "operator1", "secret123", actor.RoleOperator)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(adminCtx(), "operator1"))

	_, err = svc.Login(context.Background(), "operator1", "secret123")
	require.Error(t, err)
}

func TestDeleteUserCannotDeleteSelf(t *testing.T) {
	svc, _ := newAuthService(t)

	err := svc.DeleteUser(adminCtx(), "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestListUsersRequiresAdmin(t *testing.T) {
	svc, _ := newAuthService(t)

	users, err := svc.ListUsers(adminCtx())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Empty(t, users[0].Password, "password hash must not be exposed")

	_, err = svc.ListUsers(operatorCtx())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
