package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
	"mandate/pkg/requestcontext"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var principal = id.PrincipalID(uuid.New())
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(principal, requestcontext.RoleAgent, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, principal.String(), claims.Subject)
	assert.Equal(t, "agent", claims.Role)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateAccessToken_UnknownRole(t *testing.T) {
	_, err := jwtService.GenerateAccessToken(principal, requestcontext.Role("root"), expiresIn)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(principal, requestcontext.RoleAgent, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongKeyOrAudience(t *testing.T) {
	other := NewJWTService("other-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(principal, requestcontext.RoleAuthority, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)

	otherAud := NewJWTService("test-signing-key", "test-issuer", "elsewhere")
	token, err = otherAud.GenerateAccessToken(principal, requestcontext.RoleAuthority, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
}

func Test_Adapter(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(principal, requestcontext.RoleAuthority, expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, principal.String(), claims.Subject)
	assert.Equal(t, "authority", claims.Role)
}
