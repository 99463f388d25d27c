package account

import (
	"time"

	"github.com/goliatone/go-account/middleware/jwtware"
	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims are the verified token claims handed to protected routes
type AuthClaims = jwtware.AuthClaims

// JWTClaims is the token payload: the registered claims plus
// the identity fields {id, name, avatar}
type JWTClaims struct {
	jwt.RegisteredClaims
	UID    string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
