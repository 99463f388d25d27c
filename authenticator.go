package account

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultAuthScheme is the token prefix returned on login
const DefaultAuthScheme = "Bearer"

type Auther struct {
	users        Users
	hasher       PasswordHasher
	tokenService TokenService
	limiter      LoginLimiter
	activitySink ActivitySink
	logger       Logger
	clock        Clock
	authScheme   string
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users Users, tokenService TokenService, opts Config) *Auther {
	scheme := DefaultAuthScheme
	if opts != nil && opts.GetAuthScheme() != "" {
		scheme = opts.GetAuthScheme()
	}

	return &Auther{
		users:        users,
		hasher:       NewBcryptHasher(DefaultHashCost),
		tokenService: tokenService,
		limiter:      noopLoginLimiter{},
		activitySink: noopActivitySink{},
		logger:       newDefLogger(),
		clock:        time.Now,
		authScheme:   scheme,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

func (s *Auther) WithHasher(hasher PasswordHasher) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithLoginLimiter configures failed login throttling
func (s *Auther) WithLoginLimiter(limiter LoginLimiter) *Auther {
	s.limiter = normalizeLoginLimiter(limiter)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *Auther) WithClock(clock Clock) *Auther {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Login verifies the credentials and returns a bearer token
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := s.limiter.Allow(ctx, email); err != nil {
		if errors.Is(err, ErrTooManyLoginAttempts) {
			s.emitFailure(ctx, "", email, "throttled")
			return nil, ErrTooManyLoginAttempts
		}
		s.logger.Warn("login limiter unavailable, allowing attempt", "error", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			s.logger.Debug("login unknown email", "email", email)
			s.emitFailure(ctx, "", email, "user_not_found")
			return nil, ErrUserNotFound
		}
		s.logger.Error("login lookup failed", "error", err)
		return nil, persistenceFailure(err, "failed to look up user by email")
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			if lerr := s.limiter.RecordFailure(ctx, email); lerr != nil {
				s.logger.Warn("login limiter record failure error", "error", lerr)
			}
			s.emitFailure(ctx, user.ID.String(), email, "password_incorrect")
			return nil, ErrPasswordIncorrect
		}
		s.logger.Error("login compare hash failed", "user_id", user.ID, "error", err)
		return nil, hashingFailure(err)
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("login limiter reset error", "error", err)
	}

	token, err := s.tokenService.SignClaims(s.tokenService.NewClaims(user))
	if err != nil {
		s.logger.Error("login sign token failed", "user_id", user.ID, "error", err)
		return nil, tokenIssuanceFailure(err)
	}

	emitActivity(ctx, s.activitySink, s.logger, s.clock, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return &LoginResult{
		Success: true,
		Token:   s.authScheme + " " + token,
	}, nil
}

func (s *Auther) emitFailure(ctx context.Context, userID, email, reason string) {
	emitActivity(ctx, s.activitySink, s.logger, s.clock, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		UserID:    userID,
		Email:     email,
		Metadata:  map[string]any{"reason": reason},
	})
}
