package account

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Name      string `form:"name" json:"name"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	Password2 string `form:"password2" json:"password2"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("Name field is required"),
			validation.RuneLength(2, 30).Error("Name must be between 2 and 30 characters"),
		),
		validation.Field(&r.Email,
			validation.Required.Error("Email field is required"),
			is.Email.Error("Email is invalid"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("Password field is required"),
			validation.RuneLength(6, 30).Error("Password must be at least 6 characters"),
		),
		validation.Field(&r.Password2,
			validation.Required.Error("Confirm Password field is required"),
			validation.By(ValidateStringEquals(r.Password, "Passwords must match")),
		),
	)
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("Email field is required"),
			is.Email.Error("Email is invalid"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("Password field is required"),
		),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string, msg ...string) validation.RuleFunc {
	message := "values must match"
	if len(msg) > 0 && msg[0] != "" {
		message = msg[0]
	}
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(message, errors.CategoryValidation).
				WithCode(errors.CodeBadRequest).
				WithTextCode(TextCodeValidationFailed)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens a validation error into
// a field keyed map of messages
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr == nil {
				continue
			}
			var nested validation.Errors
			if errors.As(ferr, &nested) {
				for k, v := range FormatValidationErrorToMap(nested) {
					out[field+"."+k] = v
				}
				continue
			}
			out[field] = validationMessage(ferr)
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func validationMessage(err error) string {
	var rich *errors.Error
	if errors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	return strings.TrimSpace(err.Error())
}

// ValidationError wraps field errors into a rich validation error
func ValidationError(fields map[string]string) error {
	meta := make(map[string]any, len(fields))
	for k, v := range fields {
		meta[k] = v
	}
	return errors.New("validation failed", errors.CategoryValidation).
		WithCode(errors.CodeBadRequest).
		WithTextCode(TextCodeValidationFailed).
		WithMetadata(meta)
}
