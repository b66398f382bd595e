// Package gate implements the edge-level request-authorization pipeline: a
// per-request decision that validates CSRF proof on state-changing requests,
// redirects unauthenticated access to protected routes, and stamps fresh CSRF
// tokens onto responses. The gate keeps no state between requests so it can
// run on any edge node.
package gate

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/csrf"
	"github.com/catchup-feed/edge-gateway/internal/models"
	"github.com/catchup-feed/edge-gateway/internal/token"
)

type Gate struct {
	issuer *csrf.Issuer
	log    *zap.SugaredLogger
}

func New(issuer *csrf.Issuer, log *zap.SugaredLogger) *Gate {
	return &Gate{issuer: issuer, log: log}
}

type action int

const (
	actionAllow action = iota
	actionDenyCSRF
	actionRedirect
)

type decision struct {
	action   action
	location string
	// clearAuthCookie expires the bearer cookie on the redirect response when
	// it was present but no longer valid.
	clearAuthCookie bool
	// stampCSRF issues a fresh token onto the outgoing response.
	stampCSRF bool
}

// Middleware evaluates the gate once per inbound request, before routing.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.decide(c.Request())

			switch d.action {
			case actionDenyCSRF:
				return c.JSON(http.StatusForbidden, models.APIErrorBody{
					Error:   "CSRF token validation failed",
					Message: "Your request could not be verified. Please refresh the page and try again.",
				})

			case actionRedirect:
				if d.clearAuthCookie {
					c.SetCookie(expiredAuthCookie())
				}
				g.stamp(c, d)
				return c.Redirect(http.StatusTemporaryRedirect, d.location)
			}

			g.stamp(c, d)
			return next(c)
		}
	}
}

// decide runs the fixed phase order: CSRF, then authentication, then CSRF
// stamping. Any unexpected panic inside the decision logic is logged and
// converted to a plain allow; the recognized CSRF and auth violations stay
// fail-closed.
func (g *Gate) decide(r *http.Request) (d decision) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Errorw("edge gate internal error, allowing request through",
				"panic", rec, "method", r.Method, "path", r.URL.Path)
			d = decision{action: actionAllow}
		}
	}()

	path := r.URL.Path

	// CSRF runs before authentication so a missing token never leaks auth
	// state and the login redirect cannot be used as an oracle.
	if isStateChanging(r.Method) && !isCSRFExempt(path) {
		if !hasValidCSRFProof(r) {
			return decision{action: actionDenyCSRF}
		}
	}

	rawToken := cookieValue(r, AuthCookieName)
	authenticated := rawToken != "" && token.IsValid(rawToken)

	switch {
	case isProtected(path) && !authenticated:
		target := loginPath + "?redirect=" + url.QueryEscape(path)
		return decision{
			action:          actionRedirect,
			location:        target,
			clearAuthCookie: rawToken != "",
		}

	case path == loginPath && authenticated:
		target := dashboardPath
		if p := r.URL.Query().Get("redirect"); p != "" {
			target = p
		}
		return decision{action: actionRedirect, location: target, stampCSRF: true}
	}

	// Fresh tokens go to authenticated callers and login-page visitors; an
	// unauthenticated visit to any other public page has nothing to protect.
	return decision{
		action:    actionAllow,
		stampCSRF: authenticated || path == loginPath,
	}
}

func (g *Gate) stamp(c echo.Context, d decision) {
	if !d.stampCSRF {
		return
	}
	if err := g.issuer.Stamp(c); err != nil {
		g.log.Errorw("failed to stamp CSRF token onto response", "error", err)
	}
}

// hasValidCSRFProof implements the double-submit check: the csrf_token cookie
// and the X-CSRF-Token header must both be present and equal.
func hasValidCSRFProof(r *http.Request) bool {
	cookieTok := cookieValue(r, csrf.CookieName)
	headerTok := r.Header.Get(csrf.HeaderName)
	if cookieTok == "" || headerTok == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieTok), []byte(headerTok)) == 1
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func expiredAuthCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
