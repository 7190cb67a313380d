package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

var svc = NewService("test-signing-key", "test-issuer", "test-audience")

func TestGenerateAndValidate(t *testing.T) {
	auditorID := id.NewAuditorID()

	tokenString, err := svc.GenerateAccessToken(auditorID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, auditorID.String(), claims.AuditorID)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Expired(t *testing.T) {
	tokenString, err := svc.GenerateAccessToken(id.NewAuditorID(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateToken_WrongKey(t *testing.T) {
	other := NewService("other-key", "test-issuer", "test-audience")
	tokenString, err := other.GenerateAccessToken(id.NewAuditorID(), time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	other := NewService("test-signing-key", "someone-else", "test-audience")
	tokenString, err := other.GenerateAccessToken(id.NewAuditorID(), time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestMiddlewareAdapter(t *testing.T) {
	auditorID := id.NewAuditorID()
	tokenString, err := svc.GenerateAccessToken(auditorID, time.Hour)
	require.NoError(t, err)

	adapter := NewMiddlewareAdapter(svc)
	claims, err := adapter.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, auditorID.String(), claims.AuditorID)
	assert.NotEmpty(t, claims.TokenID)
}
