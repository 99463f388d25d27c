package account

import (
	"context"
	"time"
)

// Logger is the structured logger used across the package. Arguments
// after the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAuthScheme() string
	GetContextKey() string
	GetTokenLookup() string
}

// PasswordHasher produces and verifies salted password hashes
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService signs and validates bearer tokens
type TokenService interface {
	NewClaims(user *User) *JWTClaims
	SignClaims(claims *JWTClaims) (string, error)
	Validate(raw string) (AuthClaims, error)
}

// Authenticator verifies credentials and issues tokens
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// LoginLimiter throttles failed login attempts per key
type LoginLimiter interface {
	Allow(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Clock returns the current time, tests can pin it
type Clock func() time.Time

// LoginResult is the payload returned on a successful login
type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// CurrentUser is the identity exposed to protected routes
type CurrentUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
