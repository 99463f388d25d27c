package account

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-account/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Guard returns the bearer token middleware for protected routes
func (uc *UserController) Guard() router.MiddlewareFunc {
	cfg := jwtware.Config{
		TokenValidator: uc.Tokens,
		ContextKey:     uc.contextKey(),
		ContextEnricher: func(ctx context.Context, claims AuthClaims) context.Context {
			return WithClaimsContext(ctx, claims)
		},
		ErrorHandler: func(ctx router.Context, err error) error {
			uc.Logger.Debug("guard rejected request", "path", ctx.Path(), "error", err)
			return unauthorized(ctx)
		},
	}

	if uc.Config != nil {
		cfg.TokenLookup = uc.Config.GetTokenLookup()
		cfg.AuthScheme = uc.Config.GetAuthScheme()
	}

	if len(uc.JWKSetURLs) > 0 {
		if jwks, err := jwtware.NewJWKSValidator(uc.JWKSetURLs); err != nil {
			uc.Logger.Error("guard jwks validator unavailable", "error", err)
		} else {
			cfg.TokenValidator = jwtware.ChainValidators(uc.Tokens, jwks)
		}
	}

	return jwtware.New(cfg)
}

func unauthorized(ctx router.Context) error {
	return ctx.Status(router.StatusUnauthorized).SendString(http.StatusText(http.StatusUnauthorized))
}

// writeError renders workflow errors with the field scoped bodies
// clients expect
func (uc *UserController) writeError(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return ctx.JSON(ErrDuplicateEmail.Code, map[string]any{
			"errors": map[string]string{"email": MsgEmailExists},
		})
	case errors.Is(err, ErrUserNotFound):
		return ctx.JSON(ErrUserNotFound.Code, map[string]string{"email": MsgUserNotFound})
	case errors.Is(err, ErrPasswordIncorrect):
		return ctx.JSON(ErrPasswordIncorrect.Code, map[string]string{"password": MsgPasswordIncorrect})
	case errors.Is(err, ErrTooManyLoginAttempts):
		return ctx.JSON(ErrTooManyLoginAttempts.Code, map[string]string{"email": MsgTooManyAttempts})
	}

	richErr := asRichError(err)

	uc.Logger.Error(
		"request failed",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"path", ctx.OriginalURL(),
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return ctx.JSON(statusCode(richErr), map[string]string{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func asRichError(err error) *errors.Error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}
	return richErr
}

func statusCode(richErr *errors.Error) int {
	if richErr.Code < 400 || richErr.Code > 599 {
		return errors.CodeInternal
	}
	return richErr.Code
}

// ErrorHandler renders errors that escape route handlers as JSON. It is
// installed on the fiber app wrapped by the router adapter.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		richErr := asRichError(err)
		logger.Error("unhandled error", "error", err, "path", c.OriginalURL())
		return c.Status(statusCode(richErr)).JSON(fiber.Map{"error": richErr.Message})
	}
}
