package account

import (
	"log"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterUserRoutes mounts the user endpoints on app, usually
// a group under /api/users
func RegisterUserRoutes[T any](app router.Router[T], opts ...UserControllerOption) *UserController {
	controller := NewUserController(opts...)
	controller.MustValidate()

	app.Get(controller.Routes.Test, controller.Test).
		SetName("users.test")
	app.Post(controller.Routes.Register, controller.Register).
		SetName("users.register")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("users.login")
	app.Get(controller.Routes.Current, controller.Current, controller.Guard()).
		SetName("users.current")

	return controller
}

type UserControllerRoutes struct {
	Test     string
	Register string
	Login    string
	Current  string
}

type UserController struct {
	Debug                  bool
	LegacyRegisterResponse bool
	UseHashid              bool
	Logger                 Logger
	Repo                   RepositoryManager
	Routes                 *UserControllerRoutes
	Config                 Config
	Hasher                 PasswordHasher
	Tokens                 TokenService
	Auther                 Authenticator
	Limiter                LoginLimiter
	ActivitySink           ActivitySink
	Clock                  Clock
	// JWKSetURLs lets the guard accept tokens signed by external issuers
	JWKSetURLs []string
}

type UserControllerOption func(*UserController) *UserController

func WithRepo(repo RepositoryManager) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Repo = repo
		return uc
	}
}

func WithConfig(cfg Config) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Config = cfg
		return uc
	}
}

func WithHasher(hasher PasswordHasher) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Hasher = hasher
		return uc
	}
}

func WithTokenService(tokens TokenService) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Tokens = tokens
		return uc
	}
}

func WithAuther(auther Authenticator) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Auther = auther
		return uc
	}
}

func WithLoginLimiter(limiter LoginLimiter) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Limiter = limiter
		return uc
	}
}

func WithActivitySink(sink ActivitySink) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.ActivitySink = sink
		return uc
	}
}

func WithLogger(logger Logger) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Logger = normalizeLogger(logger)
		return uc
	}
}

func WithClock(clock Clock) UserControllerOption {
	return func(uc *UserController) *UserController {
		if clock != nil {
			uc.Clock = clock
		}
		return uc
	}
}

func WithDebug(debug bool) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.Debug = debug
		return uc
	}
}

// WithLegacyRegisterResponse includes the password hash in the
// registration response body
func WithLegacyRegisterResponse(enabled bool) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.LegacyRegisterResponse = enabled
		return uc
	}
}

func WithUseHashid(enabled bool) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.UseHashid = enabled
		return uc
	}
}

func WithJWKSetURLs(urls ...string) UserControllerOption {
	return func(uc *UserController) *UserController {
		uc.JWKSetURLs = append(uc.JWKSetURLs, urls...)
		return uc
	}
}

func WithRoutes(routes *UserControllerRoutes) UserControllerOption {
	return func(uc *UserController) *UserController {
		if routes != nil {
			uc.Routes = routes
		}
		return uc
	}
}

func NewUserController(opts ...UserControllerOption) *UserController {
	uc := &UserController{
		Logger: newDefLogger(),
		Clock:  time.Now,
		Routes: &UserControllerRoutes{
			Test:     "/test",
			Register: "/register",
			Login:    "/login",
			Current:  "/current",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			uc = opt(uc)
		}
	}

	if uc.Hasher == nil {
		uc.Hasher = NewBcryptHasher(DefaultHashCost)
	}

	if uc.Tokens == nil && uc.Config != nil {
		uc.Tokens = NewTokenService(uc.Config,
			WithTokenClock(uc.Clock),
			WithTokenLogger(uc.Logger),
		)
	}

	if uc.Auther == nil && uc.Repo != nil && uc.Tokens != nil {
		uc.Auther = NewAuthenticator(uc.Repo.Users(), uc.Tokens, uc.Config).
			WithHasher(uc.Hasher).
			WithLoginLimiter(uc.Limiter).
			WithActivitySink(uc.ActivitySink).
			WithLogger(uc.Logger).
			WithClock(uc.Clock)
	}

	return uc
}

func (uc *UserController) Validate() error {
	if uc.Repo == nil {
		return errors.New("user controller requires a repository manager", errors.CategoryInternal)
	}
	if uc.Tokens == nil {
		return errors.New("user controller requires a token service or config", errors.CategoryInternal)
	}
	if uc.Auther == nil {
		return errors.New("user controller requires an authenticator", errors.CategoryInternal)
	}
	return uc.Repo.Validate()
}

func (uc *UserController) MustValidate() {
	if err := uc.Validate(); err != nil {
		log.Panic(err)
	}
}

// Test is the health route
func (uc *UserController) Test(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"msg": "Users Works"})
}

func (uc *UserController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := uc.bind(ctx, payload); err != nil {
		uc.Logger.Error("register user parse payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		uc.Logger.Debug("register user validate payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, FormatValidationErrorToMap(err))
	}

	var created *User
	handler := NewRegisterUserHandler(uc.Repo,
		WithRegisterHasher(uc.Hasher),
		WithRegisterActivitySink(uc.ActivitySink),
		WithRegisterLogger(uc.Logger),
		WithRegisterClock(uc.Clock),
		WithRegisterHashid(uc.UseHashid),
	)

	err := handler.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(u *User) {
			created = u
		},
	})
	if err != nil {
		return uc.writeError(ctx, err)
	}

	record := created.Record(uc.LegacyRegisterResponse)
	if uc.Debug {
		uc.Logger.Debug("register user created", "record", print.MaybePrettyJSON(created))
	}

	return ctx.JSON(router.StatusOK, record)
}

func (uc *UserController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := uc.bind(ctx, payload); err != nil {
		uc.Logger.Error("login parse payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{"error": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		uc.Logger.Debug("login validate payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, FormatValidationErrorToMap(err))
	}

	res, err := uc.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return uc.writeError(ctx, err)
	}

	if uc.Debug {
		uc.Logger.Debug("login success", "email", payload.Email)
	}

	return ctx.JSON(router.StatusOK, res)
}

// Current returns the identity behind the bearer token. The user is
// reloaded so tokens of removed users are rejected.
func (uc *UserController) Current(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, uc.contextKey())
	if !ok {
		return unauthorized(ctx)
	}

	id, err := UserUUID(claims)
	if err != nil {
		uc.Logger.Debug("current user bad id claim", "error", err)
		return unauthorized(ctx)
	}

	user, err := uc.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			return unauthorized(ctx)
		}
		uc.Logger.Error("current user lookup failed", "error", err)
		return uc.writeError(ctx, persistenceFailure(err, "failed to look up user by id"))
	}

	return ctx.JSON(router.StatusOK, user.CurrentUser())
}

func (uc *UserController) contextKey() string {
	if uc.Config != nil && uc.Config.GetContextKey() != "" {
		return uc.Config.GetContextKey()
	}
	return "user"
}

// bind parses the request body, an empty body is left for validation
func (uc *UserController) bind(ctx router.Context, out any) error {
	if len(ctx.Body()) == 0 {
		return nil
	}
	return ctx.Bind(out)
}
