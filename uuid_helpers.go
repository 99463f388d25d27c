package account

import (
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserUUID parses the user id carried by claims
func UserUUID(claims AuthClaims) (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, ErrUnableToMapClaims
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryAuth, "invalid user id claim").
			WithCode(errors.CodeUnauthorized).
			WithTextCode(TextCodeTokenMalformed)
	}

	if id == uuid.Nil {
		return uuid.Nil, ErrUnableToMapClaims
	}

	return id, nil
}

// HasUserUUID reports whether UserUUID will succeed.
func HasUserUUID(claims AuthClaims) bool {
	_, err := UserUUID(claims)
	return err == nil
}
