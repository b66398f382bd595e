package gate

import (
	"net/http"
	"strings"
)

const (
	// AuthCookieName holds the bearer JWT for the session.
	AuthCookieName = "catchup_feed_auth_token"

	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// Protected routes require a valid bearer token. Everything else is public.
var protectedPrefixes = []string{"/dashboard", "/articles", "/sources"}

// Exempt routes are invoked by non-browser callers (probes, webhook senders)
// that cannot participate in the double-submit exchange.
var csrfExemptPrefixes = []string{"/api/health", "/api/webhooks", "/api/metrics", "/api/readiness"}

func isProtected(path string) bool {
	return hasAnyPrefix(path, protectedPrefixes)
}

func isCSRFExempt(path string) bool {
	return hasAnyPrefix(path, csrfExemptPrefixes)
}

// isStateChanging reports whether the method is subject to CSRF validation.
// GET, HEAD and OPTIONS are safe by definition and always bypass it.
func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
