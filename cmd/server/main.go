package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-account"
	"github.com/goliatone/go-account/config"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

type App struct {
	config  *gconfig.Container[*config.BaseConfig]
	db      *bun.DB
	redis   *redis.Client
	repo    account.RepositoryManager
	limiter account.LoginLimiter
	srv     router.Server[*fiber.App]
	fiber   *fiber.App
	logger  *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	container := config.NewContainer().
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	cfg, err := config.Load(ctx, container)
	if err != nil {
		panic(err)
	}

	if cfg.Server.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(redacted(cfg)))
		fmt.Println("============")
	}

	app := &App{
		config: container,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	WithLoginLimiter(ctx, app)

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	go func() {
		if err := app.srv.Serve(cfg.Server.Addr); err != nil {
			app.GetLogger("server").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("server").Info("shutting down", "signal", sig.String())

	if err := app.fiber.ShutdownWithTimeout(cfg.Server.GetShutdownTimeout()); err != nil {
		app.GetLogger("server").Error("shutdown error", "error", err)
	}

	if app.redis != nil {
		_ = app.redis.Close()
	}

	if err := app.db.Close(); err != nil {
		app.GetLogger("persistence").Error("close database", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := account.OpenDB(ctx, app.Config().GetPersistence())
	if err != nil {
		return err
	}

	app.db = db
	app.repo = account.NewRepositoryManager(db)
	app.repo.MustValidate()

	return nil
}

// WithLoginLimiter uses redis when an address is configured and the
// in process limiter otherwise
func WithLoginLimiter(ctx context.Context, app *App) {
	lcfg := account.LimiterConfig{
		MaxAttempts: app.Config().GetLimiter().MaxAttempts,
		Cooldown:    app.Config().GetLimiter().GetCooldown(),
	}

	rcfg := app.Config().GetRedis()
	if !rcfg.Enabled() {
		app.limiter = account.NewMemoryLoginLimiter(lcfg, nil)
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		app.GetLogger("limiter").Warn("redis unavailable, using in process limiter", "error", err)
		_ = client.Close()
		app.limiter = account.NewMemoryLoginLimiter(lcfg, nil)
		return
	}

	app.redis = client
	app.limiter = account.NewRedisLoginLimiter(client, lcfg)
}

func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.Config()

	app.fiber = fiber.New(fiber.Config{
		AppName:           "go-account",
		EnablePrintRoutes: cfg.Server.Debug,
		ErrorHandler:      account.ErrorHandler(app.GetLogger("http")),
	})
	app.fiber.Use(recover.New())
	app.fiber.Use(requestid.New())

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return app.fiber
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	auth := cfg.GetAuth()

	account.RegisterUserRoutes(srv.Router().Group("/api/users"),
		account.WithRepo(app.repo),
		account.WithConfig(auth),
		account.WithHasher(account.NewBcryptHasher(auth.HashCost)),
		account.WithLoginLimiter(app.limiter),
		account.WithActivitySink(account.LoggerActivitySink(app.GetLogger("activity"))),
		account.WithLogger(app.GetLogger("account")),
		account.WithDebug(cfg.Server.Debug),
		account.WithLegacyRegisterResponse(cfg.Server.LegacyRegisterResponse),
		account.WithUseHashid(auth.UseHashid),
		account.WithJWKSetURLs(auth.JWKSetURLs...),
	)

	app.srv = srv
	return nil
}

func redacted(cfg *config.BaseConfig) config.BaseConfig {
	out := *cfg
	out.Auth.SigningKey = "****"
	if out.Redis.Password != "" {
		out.Redis.Password = "****"
	}
	return out
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
