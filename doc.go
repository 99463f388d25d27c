// Package account provides the user account primitives behind the users API:
// credential registration, password verification, bearer token issuance and
// the HTTP routes that expose them.
//
// Registration:
//   - RegisterUserHandler checks the store for an existing email, derives the
//     avatar URL, hashes the password with a fresh salt and inserts the user.
//     The users table carries a unique index on email; a constraint violation
//     is reported as ErrDuplicateEmail, same as the early lookup.
//
// Authentication:
//   - Auther looks the user up by email, compares the password against the
//     stored bcrypt hash and signs a JWT carrying {id, name, avatar}. Tokens
//     are returned with the configured auth scheme prefix ("Bearer <jwt>").
//   - A LoginLimiter throttles repeated failures per email. Limiter backend
//     errors are logged and the login proceeds.
//
// Session guard:
//   - Protected routes use middleware/jwtware. Verification is stateless, the
//     claims are stored in the request locals and the current user is loaded
//     again from the store on every request.
package account
