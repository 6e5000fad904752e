package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aerostore/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"aerostore",
	"aerostore-admin",
)

func Test_GenerateAdminToken(t *testing.T) {
	token, err := jwtService.GenerateAdminToken("admin", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.AdminID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAdminToken("admin", -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("other-signing-key", "aerostore", "aerostore-admin")
	token, err := other.GenerateAdminToken("admin", time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_Adapter(t *testing.T) {
	adapter := NewJWTServiceAdapter(jwtService)
	token, err := jwtService.GenerateAdminToken("admin", time.Hour)
	require.NoError(t, err)

	claims, err := adapter.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.AdminID)
}
