package account

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	TextCodeValidationFailed   = "VALIDATION_FAILED"
	TextCodeEmailExists        = "EMAIL_EXISTS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodePasswordIncorrect  = "PASSWORD_INCORRECT"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodePersistenceFailure = "PERSISTENCE_FAILURE"
	TextCodeHashingFailure     = "HASHING_FAILURE"
	TextCodeTokenIssuance      = "TOKEN_ISSUANCE_FAILURE"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
)

// Messages sent back in field scoped error bodies
const (
	MsgEmailExists       = "Email already exists"
	MsgUserNotFound      = "User not found"
	MsgPasswordIncorrect = "Password incorrect"
	MsgTooManyAttempts   = "Too many failed login attempts, try again later"
)

// ErrDuplicateEmail is returned when registering an email we already store
var ErrDuplicateEmail = errors.New(MsgEmailExists, errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmailExists)

// ErrUserNotFound is returned when login targets an unknown email
var ErrUserNotFound = errors.New(MsgUserNotFound, errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrPasswordIncorrect is returned when the password does not match the hash
var ErrPasswordIncorrect = errors.New(MsgPasswordIncorrect, errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodePasswordIncorrect)

// ErrTooManyLoginAttempts is returned while an email is throttled
var ErrTooManyLoginAttempts = errors.New(MsgTooManyAttempts, errors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode(TextCodeTooManyAttempts)

// ErrTokenExpired is returned when a bearer token is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens that fail parsing or signature checks
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrMismatchedHashAndPassword is the hasher level mismatch error
var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString empty passwords are never hashed
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrUnableToMapClaims unable to get claims from the request
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

func persistenceFailure(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithCode(errors.CodeInternal).
		WithTextCode(TextCodePersistenceFailure)
}

func hashingFailure(err error) error {
	return errors.Wrap(err, errors.CategoryInternal, "failed to hash password").
		WithCode(errors.CodeInternal).
		WithTextCode(TextCodeHashingFailure)
}

func tokenIssuanceFailure(err error) error {
	return errors.Wrap(err, errors.CategoryInternal, "failed to issue token").
		WithCode(errors.CodeInternal).
		WithTextCode(TextCodeTokenIssuance)
}

// IsUniqueViolation reports whether err comes from a unique index on insert.
// The repository layer may hand back a mapped duplicate key error or a
// generic database error wrapping the driver error, so the whole chain
// is checked: PostgreSQL by SQLSTATE 23505, SQLite by message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*errors.RetryableError); ok && (re == nil || re.BaseError == nil) {
		return false
	}

	if repository.IsDuplicatedKey(err) {
		return true
	}

	for current := err; current != nil; current = unwrapOnce(current) {
		if pgErr, ok := current.(*pgconn.PgError); ok {
			return pgErr.Code == pgUniqueViolation
		}
		if isUniqueViolationMessage(current) {
			return true
		}
	}

	return false
}

func isUniqueViolationMessage(err error) bool {
	var msg string
	switch e := err.(type) {
	case *errors.Error:
		if e == nil {
			return false
		}
		msg = e.Message
	case *errors.RetryableError:
		if e == nil || e.BaseError == nil {
			return false
		}
		msg = e.BaseError.Message
	default:
		msg = err.Error()
	}

	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// unwrapOnce steps one level down the chain. go-errors values with a
// nil base are treated as the end of the chain.
func unwrapOnce(err error) error {
	switch e := err.(type) {
	case *errors.RetryableError:
		if e == nil || e.BaseError == nil {
			return nil
		}
		return e.BaseError
	case *errors.Error:
		if e == nil || e.Source == nil {
			return nil
		}
		return e.Source
	}
	return errors.Unwrap(err)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}
