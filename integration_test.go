package account_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-account"
	"github.com/goliatone/go-account/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSink struct {
	mu     sync.Mutex
	events []account.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt account.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) types() []account.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]account.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

func TestRegisterLoginCurrentIntegration(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)

	cfg := config.Defaults()
	cfg.Auth.SigningKey = "integration-key"
	cfg.Auth.Issuer = "go-account"
	cfg.Limiter.MaxAttempts = 2
	require.NoError(t, cfg.Validate())

	repo := account.NewRepositoryManager(newTestDB(t))
	sink := &capturingSink{}

	server, app := newRouterServer(t, nopLogger{}, recover.New(), requestid.New())

	account.RegisterUserRoutes(server.Router().Group("/api/users"),
		account.WithRepo(repo),
		account.WithConfig(cfg.GetAuth()),
		account.WithHasher(newTestHasher()),
		account.WithLoginLimiter(account.NewRedisLoginLimiter(client, account.LimiterConfig{
			MaxAttempts: cfg.Limiter.MaxAttempts,
			Cooldown:    cfg.Limiter.GetCooldown(),
		})),
		account.WithActivitySink(sink),
		account.WithLogger(nopLogger{}),
	)
	mountRoutes(server)

	srv := &testServer{app: app, repo: repo}

	code, registered := srv.register(t, "Jane", "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)

	code, _ = srv.login(t, "jane@example.com", "wrong")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, mr.Exists("account:login:jane@example.com"))

	code, body := srv.login(t, "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, mr.Exists("account:login:jane@example.com"), "success resets the counter")

	token := body["token"].(string)

	code, current, _ := srv.current(t, token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, registered["id"], current["id"])
	assert.Equal(t, "jane@example.com", current["email"])

	for i := 0; i < cfg.Limiter.MaxAttempts; i++ {
		code, _ = srv.login(t, "jane@example.com", "wrong")
		assert.Equal(t, http.StatusBadRequest, code)
	}
	code, _ = srv.login(t, "jane@example.com", "secret1")
	assert.Equal(t, http.StatusTooManyRequests, code)

	assert.Equal(t, []account.ActivityEventType{
		account.ActivityEventUserRegistered,
		account.ActivityEventLoginFailure,
		account.ActivityEventLoginSuccess,
		account.ActivityEventLoginFailure,
		account.ActivityEventLoginFailure,
		account.ActivityEventLoginFailure,
	}, sink.types())

	count, err := repo.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/users/test", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Header.Get(fiber.HeaderXRequestID))
}
