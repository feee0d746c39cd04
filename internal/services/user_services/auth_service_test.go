// File: internal/services/user_services/auth_service_test.go
package user_services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyra-app/calyra/internal/domain"
)

func TestAuthService_RoundTrip(t *testing.T) {
	svc, err := NewAuthService("test-secret", nil)
	require.NoError(t, err)

	token, err := svc.CreateToken(42, domain.UserTypeRegular)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, userType, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, domain.UserTypeRegular, userType)
}

func TestAuthService_UnknownClassFallsBackToGuest(t *testing.T) {
	svc, err := NewAuthService("test-secret", nil)
	require.NoError(t, err)

	token, err := svc.CreateToken(7, "superuser")
	require.NoError(t, err)

	_, userType, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserTypeGuest, userType)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	svc, err := NewAuthService("test-secret", nil)
	require.NoError(t, err)

	_, _, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A token signed with a different secret must not validate.
	other, err := NewAuthService("other-secret", nil)
	require.NoError(t, err)
	token, err := other.CreateToken(1, domain.UserTypeGuest)
	require.NoError(t, err)

	_, _, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RequiresSecretAndUserID(t *testing.T) {
	_, err := NewAuthService("", nil)
	require.Error(t, err)

	svc, err := NewAuthService("test-secret", nil)
	require.NoError(t, err)
	_, err = svc.CreateToken(0, domain.UserTypeGuest)
	require.Error(t, err)
}
