package csrf

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestMint(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer(false, time.Minute)

	first, err := issuer.Mint()
	require.NoError(t, err)

	second, err := issuer.Mint()
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	raw, err := base64.RawURLEncoding.DecodeString(first)
	require.NoError(t, err)
	require.Len(t, raw, tokenByteLength)
}

func TestStamp(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer(true, 30*time.Minute)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, issuer.Stamp(c))

	headerTok := rec.Header().Get(HeaderName)
	require.NotEmpty(t, headerTok)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	require.Equal(t, CookieName, cookie.Name)
	require.Equal(t, headerTok, cookie.Value)
	require.Equal(t, 1800, cookie.MaxAge)
	require.True(t, cookie.Secure)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}
