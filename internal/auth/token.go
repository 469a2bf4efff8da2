package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is the claim subset the client cares about. Tokens are
// parsed unverified; the client holds no signing key and signature
// checks belong to the server. The claims are used only to warn before
// expiry, never for authorization decisions.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// Inspect decodes the claims of a bearer token without verifying its
// signature.
func Inspect(token string) (*TokenInfo, error) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	info := &TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
	}
	return info, nil
}

// ExpiresWithin reports whether the token expires within d of now. A
// token with no expiry claim never expires from the client's point of
// view.
func (t *TokenInfo) ExpiresWithin(d time.Duration) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Until(*t.ExpiresAt) < d
}
