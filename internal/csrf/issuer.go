package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const tokenByteLength = 32

// Issuer mints the server-issued CSRF nonces the gate stamps onto responses
// for authenticated callers and login-page visitors.
type Issuer struct {
	secure bool
	ttl    time.Duration
}

func NewIssuer(secure bool, ttl time.Duration) *Issuer {
	return &Issuer{secure: secure, ttl: ttl}
}

func (i *Issuer) Mint() (string, error) {
	raw := make([]byte, tokenByteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Stamp mints a fresh token and attaches both halves of the double-submit
// pair to the outgoing response: the cookie for the browser to send back
// implicitly, and the header for the client to capture and echo explicitly.
func (i *Issuer) Stamp(c echo.Context) error {
	tok, err := i.Mint()
	if err != nil {
		return err
	}

	c.Response().Header().Set(HeaderName, tok)
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(i.ttl.Seconds()),
		Secure:   i.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return nil
}
