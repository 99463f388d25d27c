package config

import (
	"fmt"
	"strings"
	"time"
)

type BaseConfig struct {
	Server      Server      `koanf:"server" json:"server"`
	Auth        Auth        `koanf:"auth" json:"auth"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
	Limiter     Limiter     `koanf:"limiter" json:"limiter"`
	Redis       Redis       `koanf:"redis" json:"redis"`
}

type Server struct {
	Addr                      string `koanf:"addr" json:"addr"`
	Debug                     bool   `koanf:"debug" json:"debug"`
	LegacyRegisterResponse    bool   `koanf:"legacy_register_response" json:"legacy_register_response"`
	ShutdownTimeoutExpression string `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

// Auth implements account.Config
type Auth struct {
	SigningKey      string   `koanf:"signing_key" json:"signing_key"`
	SigningMethod   string   `koanf:"signing_method" json:"signing_method"`
	TokenExpiration int      `koanf:"token_expiration" json:"token_expiration"`
	Issuer          string   `koanf:"issuer" json:"issuer"`
	AuthScheme      string   `koanf:"auth_scheme" json:"auth_scheme"`
	ContextKey      string   `koanf:"context_key" json:"context_key"`
	TokenLookup     string   `koanf:"token_lookup" json:"token_lookup"`
	HashCost        int      `koanf:"hash_cost" json:"hash_cost"`
	UseHashid       bool     `koanf:"use_hashid" json:"use_hashid"`
	JWKSetURLs      []string `koanf:"jwk_set_urls" json:"jwk_set_urls"`
}

// Persistence implements account.PersistenceConfig
type Persistence struct {
	Debug                 bool   `koanf:"debug" json:"debug"`
	Driver                string `koanf:"driver" json:"driver"`
	Server                string `koanf:"server" json:"server"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
	OtelIdentifier        string `koanf:"otel_identifier" json:"otel_identifier"`
}

type Limiter struct {
	MaxAttempts        int    `koanf:"max_attempts" json:"max_attempts"`
	CooldownExpression string `koanf:"cooldown" json:"cooldown"`
}

type Redis struct {
	Addr     string `koanf:"addr" json:"addr"`
	Password string `koanf:"password" json:"password"`
	DB       int    `koanf:"db" json:"db"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *BaseConfig {
	return &BaseConfig{
		Server: Server{
			Addr:                      ":5000",
			ShutdownTimeoutExpression: "10s",
		},
		Auth: Auth{
			SigningKey:      "secret",
			SigningMethod:   "HS256",
			TokenExpiration: 3600,
			AuthScheme:      "Bearer",
			ContextKey:      "user",
			TokenLookup:     "header:Authorization",
			HashCost:        10,
		},
		Persistence: Persistence{
			Driver:                "sqlite",
			Server:                "file:account.db?cache=shared",
			PingTimeoutExpression: "5s",
			OtelIdentifier:        "account",
		},
		Limiter: Limiter{
			MaxAttempts:        5,
			CooldownExpression: "15m",
		},
	}
}

func (a BaseConfig) Validate() error {
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("auth signing key must not be empty")
	}
	if a.Auth.TokenExpiration <= 0 {
		return fmt.Errorf("auth token expiration must be positive, got %d", a.Auth.TokenExpiration)
	}
	if a.Persistence.Server == "" {
		return fmt.Errorf("persistence server must not be empty")
	}
	if a.Limiter.MaxAttempts < 0 {
		return fmt.Errorf("limiter max attempts must not be negative")
	}

	for name, expr := range map[string]string{
		"persistence ping timeout": a.Persistence.PingTimeoutExpression,
		"server shutdown timeout":  a.Server.ShutdownTimeoutExpression,
		"limiter cooldown":         a.Limiter.CooldownExpression,
	} {
		if _, err := time.ParseDuration(expr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (a BaseConfig) GetServer() Server           { return a.Server }
func (a BaseConfig) GetAuth() Auth               { return a.Auth }
func (a BaseConfig) GetPersistence() Persistence { return a.Persistence }
func (a BaseConfig) GetLimiter() Limiter         { return a.Limiter }
func (a BaseConfig) GetRedis() Redis             { return a.Redis }

func (s Server) GetShutdownTimeout() time.Duration {
	return mustParseDuration(s.ShutdownTimeoutExpression)
}

func (a Auth) GetSigningKey() string    { return a.SigningKey }
func (a Auth) GetSigningMethod() string { return a.SigningMethod }
func (a Auth) GetTokenExpiration() int  { return a.TokenExpiration }
func (a Auth) GetIssuer() string        { return a.Issuer }
func (a Auth) GetAuthScheme() string    { return a.AuthScheme }
func (a Auth) GetContextKey() string    { return a.ContextKey }
func (a Auth) GetTokenLookup() string   { return a.TokenLookup }

func (p Persistence) GetDebug() bool            { return p.Debug }
func (p Persistence) GetServer() string         { return p.Server }
func (p Persistence) GetDSN() string            { return p.Server }
func (p Persistence) GetOtelIdentifier() string { return p.OtelIdentifier }

// GetDriver falls back to the DSN scheme when no driver is set
func (p Persistence) GetDriver() string {
	if p.Driver != "" {
		return p.Driver
	}
	if strings.HasPrefix(p.Server, "postgres://") || strings.HasPrefix(p.Server, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func (p Persistence) GetPingTimeout() time.Duration {
	return mustParseDuration(p.PingTimeoutExpression)
}

func (l Limiter) GetCooldown() time.Duration {
	return mustParseDuration(l.CooldownExpression)
}

// Enabled reports whether a redis address was configured
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

func mustParseDuration(expr string) time.Duration {
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", expr),
		)
	}
	return dur
}
