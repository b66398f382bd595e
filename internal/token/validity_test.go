package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func tokenWithExp(t *testing.T, exp time.Time) string {
	t.Helper()

	return signedToken(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	t.Run("expired an hour ago", func(t *testing.T) {
		require.False(t, IsValid(tokenWithExp(t, time.Now().Add(-time.Hour))))
	})

	t.Run("expires in an hour", func(t *testing.T) {
		require.True(t, IsValid(tokenWithExp(t, time.Now().Add(time.Hour))))
	})

	t.Run("no exp claim defers to the server", func(t *testing.T) {
		require.True(t, IsValid(signedToken(t, jwt.RegisteredClaims{Subject: "user-1"})))
	})

	t.Run("within clock skew tolerance", func(t *testing.T) {
		require.True(t, IsValid(tokenWithExp(t, time.Now().Add(-10*time.Second))))
	})

	t.Run("past the skew tolerance", func(t *testing.T) {
		require.False(t, IsValid(tokenWithExp(t, time.Now().Add(-ClockSkewTolerance-time.Second))))
	})

	t.Run("malformed token is invalid", func(t *testing.T) {
		require.False(t, IsValid("not-a-jwt"))
		require.False(t, IsValid(""))
	})
}

func TestIsExpiringSoon(t *testing.T) {
	t.Parallel()

	t.Run("expiring within threshold", func(t *testing.T) {
		require.True(t, IsExpiringSoon(tokenWithExp(t, time.Now().Add(30*time.Second)), time.Minute))
	})

	t.Run("already expired", func(t *testing.T) {
		require.True(t, IsExpiringSoon(tokenWithExp(t, time.Now().Add(-time.Hour)), time.Minute))
	})

	t.Run("far from expiry", func(t *testing.T) {
		require.False(t, IsExpiringSoon(tokenWithExp(t, time.Now().Add(time.Hour)), time.Minute))
	})

	t.Run("malformed counts as expiring", func(t *testing.T) {
		require.True(t, IsExpiringSoon("garbage", time.Minute))
	})

	t.Run("no exp claim never expires", func(t *testing.T) {
		require.False(t, IsExpiringSoon(signedToken(t, jwt.RegisteredClaims{Subject: "user-1"}), time.Minute))
	})
}
