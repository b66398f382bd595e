package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClockSkewTolerance is added to the exp claim before a token is treated as
// expired, so a slightly skewed edge clock does not bounce live sessions.
const ClockSkewTolerance = 30 * time.Second

// IsValid reports whether a bearer token is still usable from the edge's
// point of view. The payload is decoded without signature verification:
// signatures are the backend's responsibility, the edge only inspects exp.
//
// A token that cannot be decoded is invalid. A token without an exp claim is
// considered valid and left for the backend to verify.
func IsValid(raw string) bool {
	exp, err := expirationOf(raw)
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return time.Now().Before(exp.Add(ClockSkewTolerance))
}

// IsExpiringSoon reports whether the token's exp claim falls within threshold
// from now (or is already past). Undecodable tokens count as expiring: callers
// must treat invalid as expired, never as valid. Tokens without an exp claim
// never report as expiring since there is no deadline to refresh against.
func IsExpiringSoon(raw string, threshold time.Duration) bool {
	exp, err := expirationOf(raw)
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return time.Now().Add(threshold).After(*exp)
}

func expirationOf(raw string) (*time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil, nil
	}
	return &claims.ExpiresAt.Time, nil
}
