package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, exp, err := svc.GenerateAccessToken(Subject{
		UserID:      "u1",
		Email:       "baker@example.com",
		Permissions: []string{"stock:read"},
		Branches:    []string{"Main", "Harbor"},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
	assert.Equal(t, []string{"Main", "Harbor"}, user.Branches)
	assert.True(t, user.HasPermission("stock:read"))
	assert.False(t, user.IsAdmin)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	token, _, err := svc.GenerateAccessToken(Subject{UserID: "u1"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTService(DefaultJWTConfig("other")).ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.Issuer = "someone-else"
		_, err := NewJWTService(cfg).ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewJWTService(DefaultJWTConfig("secret"))
		late.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err := late.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(s)
		assert.Error(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		_, _, err := svc.GenerateAccessToken(Subject{})
		assert.Error(t, err)
	})
}
