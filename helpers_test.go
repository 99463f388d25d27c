package account_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-account"
	"github.com/goliatone/go-account/config"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"

	db, err := account.OpenDB(ctx, newTestPersistence(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestPersistence(dsn string) config.Persistence {
	return config.Persistence{
		Driver:                "sqlite",
		Server:                dsn,
		PingTimeoutExpression: "5s",
		OtelIdentifier:        "account-test",
	}
}

func newTestHasher() account.PasswordHasher {
	return account.NewBcryptHasher(bcrypt.MinCost)
}

func seedUser(t *testing.T, repo account.RepositoryManager, name, email, password string) *account.User {
	t.Helper()

	hash, err := newTestHasher().HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Register(context.Background(), &account.User{
		Name:         name,
		Email:        email,
		Avatar:       account.AvatarURL(email, account.DefaultAvatarOptions),
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return user
}

// newRouterServer wraps a fiber app configured like cmd/server in the
// router adapter. Requests are driven through the returned app.
func newRouterServer(t *testing.T, logger account.Logger, middlewares ...fiber.Handler) (router.Server[*fiber.App], *fiber.App) {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: account.ErrorHandler(logger),
	})
	for _, mw := range middlewares {
		app.Use(mw)
	}

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return app
	})
	return srv, app
}

// mountRoutes finalizes route registration on adapters that defer it
func mountRoutes(srv router.Server[*fiber.App]) {
	if initer, ok := srv.(interface{ Init() }); ok {
		initer.Init()
	}
}
