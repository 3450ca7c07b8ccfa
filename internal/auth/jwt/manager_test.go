package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paycore/payroll-backend/pkg/config"
	"github.com/paycore/payroll-backend/pkg/errors"
)

func newTestManager(expiry time.Duration) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "payroll-test",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	mgr := newTestManager(time.Hour)

	token, expiresAt, err := mgr.Generate("alice", "operator")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := mgr.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "payroll-test", claims.Issuer)
}

func TestValidateExpiredToken(t *testing.T) {
	mgr := newTestManager(-time.Minute)

	token, _, err := mgr.Generate("alice", "operator")
	require.NoError(t, err)

	_, err = mgr.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestValidateWrongSecret(t *testing.T) {
	token, _, err := newTestManager(time.Hour).Generate("alice", "operator")
	require.NoError(t, err)

	other := NewManager(&config.JWTConfig{Secret: "different", AccessExpiry: time.Hour})
	_, err = other.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestValidateGarbage(t *testing.T) {
	mgr := newTestManager(time.Hour)

	_, err := mgr.Validate("not.a.token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
