package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("frontend-secret", "solovoro-api", time.Minute)

	token, err := tm.GenerateToken("/posts/moving-tips", "01HZX")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "/posts/moving-tips", claims.Path)
	assert.Equal(t, "01HZX", claims.DeliveryID)
	assert.Equal(t, RevalidationSubject, claims.Subject)
	assert.Equal(t, "solovoro-api", claims.Issuer)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("a", "solovoro-api", time.Minute).GenerateToken("/", "")
	require.NoError(t, err)

	_, err = NewTokenManager("b", "solovoro-api", time.Minute).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("frontend-secret", "solovoro-api", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := tm.GenerateToken("/", "")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := NewTokenManager("frontend-secret", "solovoro-api", time.Minute)
	_, err := tm.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTimingSafeCompare(t *testing.T) {
	assert.True(t, TimingSafeCompare("abc", "abc"))
	assert.False(t, TimingSafeCompare("abc", "abd"))
	assert.False(t, TimingSafeCompare("abc", "ab"))
	assert.False(t, TimingSafeCompare("", "x"))
}
