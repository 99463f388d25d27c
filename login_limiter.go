package account

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	DefaultLoginMaxAttempts = 5
	DefaultLoginCooldown    = 15 * time.Minute
)

// ErrLimiterUnavailable indicates the limiter backend could not be reached
var ErrLimiterUnavailable = errors.New("login limiter backend unavailable", errors.CategoryInternal).
	WithCode(errors.CodeInternal)

// LimiterConfig configures failed login throttling
type LimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
	KeyPrefix   string
}

func (c LimiterConfig) normalize() LimiterConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultLoginMaxAttempts
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultLoginCooldown
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "account:login:"
	}
	return c
}

func limiterKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

type noopLoginLimiter struct{}

func (noopLoginLimiter) Allow(context.Context, string) error         { return nil }
func (noopLoginLimiter) RecordFailure(context.Context, string) error { return nil }
func (noopLoginLimiter) Reset(context.Context, string) error         { return nil }

// NoopLoginLimiter never throttles
func NoopLoginLimiter() LoginLimiter {
	return noopLoginLimiter{}
}

func normalizeLoginLimiter(l LoginLimiter) LoginLimiter {
	if l == nil {
		return noopLoginLimiter{}
	}
	return l
}

// RedisLoginLimiter counts failures in redis. The counter expires
// Cooldown after the first failure of a window.
type RedisLoginLimiter struct {
	client redis.UniversalClient
	config LimiterConfig
}

var _ LoginLimiter = (*RedisLoginLimiter)(nil)

func NewRedisLoginLimiter(client redis.UniversalClient, cfg LimiterConfig) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client, config: cfg.normalize()}
}

func (l *RedisLoginLimiter) key(key string) string {
	return l.config.KeyPrefix + limiterKey(key)
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	count, err := l.client.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return unavailable(err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return ErrTooManyLoginAttempts
	}
	return nil
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	count, err := l.client.Incr(ctx, l.key(key)).Result()
	if err != nil {
		return unavailable(err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, l.key(key), l.config.Cooldown).Err(); err != nil {
			return unavailable(err)
		}
	}
	return nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("%s: %v", ErrLimiterUnavailable.Message, err)).
		WithCode(errors.CodeInternal)
}

// MemoryLoginLimiter keeps a token bucket per key. A key holds
// MaxAttempts tokens refilled over Cooldown, each failure spends one.
type MemoryLoginLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	config   LimiterConfig
	clock    Clock
	perToken rate.Limit
}

var _ LoginLimiter = (*MemoryLoginLimiter)(nil)

func NewMemoryLoginLimiter(cfg LimiterConfig, clock Clock) *MemoryLoginLimiter {
	cfg = cfg.normalize()
	if clock == nil {
		clock = time.Now
	}
	return &MemoryLoginLimiter{
		buckets:  map[string]*rate.Limiter{},
		config:   cfg,
		clock:    clock,
		perToken: rate.Every(cfg.Cooldown / time.Duration(cfg.MaxAttempts)),
	}
}

func (l *MemoryLoginLimiter) bucket(key string, create bool) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok && create {
		b = rate.NewLimiter(l.perToken, l.config.MaxAttempts)
		l.buckets[key] = b
	}
	return b
}

func (l *MemoryLoginLimiter) Allow(_ context.Context, key string) error {
	b := l.bucket(limiterKey(key), false)
	if b == nil {
		return nil
	}
	if b.TokensAt(l.clock()) < 1 {
		return ErrTooManyLoginAttempts
	}
	return nil
}

func (l *MemoryLoginLimiter) RecordFailure(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	l.bucket(limiterKey(key), true).AllowN(l.clock(), 1)
	return nil
}

func (l *MemoryLoginLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, limiterKey(key))
	return nil
}
