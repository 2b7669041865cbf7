package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
)

// Error kinds returned by the services. Callers match them with errors.Is; the
// wrapped message is safe to show to the end user.
var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserMessage returns the client-facing part of a service error, dropping the
// sentinel prefix.
func UserMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrInvalidState} {
		if errors.Is(err, kind) {
			msg = strings.TrimPrefix(msg, kind.Error()+": ")
			break
		}
	}
	return msg
}

func newValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Titles and names end up in mail headers.
	_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
	_ = v.RegisterValidation("bookcondition", func(fl validator.FieldLevel) bool {
		return isCondition(models.BookCondition(fl.Field().String()))
	})
	return v
}

func isCondition(c models.BookCondition) bool {
	for _, known := range models.Conditions {
		if c == known {
			return true
		}
	}
	return false
}

func conditionNames() string {
	names := make([]string, len(models.Conditions))
	for i, c := range models.Conditions {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// validateStruct runs the validate tags on s and folds every failure into one
// ErrValidation.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return newValidationError("%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "bookcondition":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), conditionNames())
	case "singleline":
		return fe.Field() + " must not contain line breaks"
	case "email":
		return fe.Field() + " must be a valid email address"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
