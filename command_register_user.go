package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// DefaultRegisterTimeout bounds a single registration
const DefaultRegisterTimeout = 10 * time.Second

type RegisterUserMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(*User)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler runs the registration workflow: uniqueness check,
// avatar, salted hash and insert.
type RegisterUserHandler struct {
	repo      RepositoryManager
	hasher    PasswordHasher
	sink      ActivitySink
	logger    Logger
	clock     Clock
	avatar    AvatarOptions
	useHashid bool
	timeout   time.Duration
}

type RegisterUserOption func(*RegisterUserHandler)

func WithRegisterHasher(hasher PasswordHasher) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if hasher != nil {
			h.hasher = hasher
		}
	}
}

func WithRegisterActivitySink(sink ActivitySink) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

func WithRegisterLogger(logger Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.logger = normalizeLogger(logger)
	}
}

func WithRegisterClock(clock Clock) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func WithRegisterAvatarOptions(opts AvatarOptions) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.avatar = opts
	}
}

// WithRegisterHashid derives the user ID from the email
func WithRegisterHashid(enabled bool) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.useHashid = enabled
	}
}

func WithRegisterTimeout(timeout time.Duration) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

func NewRegisterUserHandler(repo RepositoryManager, opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:    repo,
		hasher:  NewBcryptHasher(DefaultHashCost),
		sink:    noopActivitySink{},
		logger:  newDefLogger(),
		clock:   time.Now,
		avatar:  DefaultAvatarOptions,
		timeout: DefaultRegisterTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	users := h.repo.Users()

	if _, err := users.GetByEmail(ctx, event.Email); err == nil {
		h.logger.Debug("register user email taken", "email", event.Email)
		return ErrDuplicateEmail
	} else if !IsNotFound(err) {
		h.logger.Error("register user lookup failed", "error", err)
		return persistenceFailure(err, "failed to look up user by email")
	}

	hash, err := h.hashPassword(ctx, event.Password)
	if err != nil {
		return err
	}

	user := &User{
		Name:         event.Name,
		Email:        event.Email,
		Avatar:       AvatarURL(event.Email, h.avatar),
		PasswordHash: hash,
	}

	now := h.clock().UTC()
	user.CreatedAt = &now

	if h.useHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		} else {
			h.logger.Warn("register user hashid failed, using random id", "error", err)
		}
	}

	created, err := users.Register(ctx, user)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		h.logger.Error("register user insert failed", "error", err)
		return persistenceFailure(err, "failed to create user")
	}

	emitActivity(ctx, h.sink, h.logger, h.clock, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    created.ID.String(),
		Email:     created.Email,
	})

	if event.OnResponse != nil {
		event.OnResponse(created)
	}

	return nil
}

type hashResult struct {
	hash string
	err  error
}

// hashPassword runs the hasher on its own goroutine so the wait
// can be abandoned when ctx is done
func (h *RegisterUserHandler) hashPassword(ctx context.Context, password string) (string, error) {
	done := make(chan hashResult, 1)

	go func() {
		hash, err := h.hasher.HashPassword(password)
		done <- hashResult{hash: hash, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "password hashing cancelled")
	case res := <-done:
		if res.err != nil {
			h.logger.Error("register user hash failed", "error", res.err)
			return "", hashingFailure(res.err)
		}
		if res.hash == "" {
			return "", hashingFailure(ErrNoEmptyString)
		}
		return res.hash, nil
	}
}
