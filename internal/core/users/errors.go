package users

import (
	"errors"
	"fmt"
)

// Sentinel errors for common user operations
var (
	// ErrUserNotFound is returned when a user lookup finds no matching record
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering an email that already has an account
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	// Both cases share one error so callers cannot probe for accounts.
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// InvalidFieldError is returned when registration input fails validation
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInvalidField checks if err is an input validation error
func IsInvalidField(err error) bool {
	var fieldErr *InvalidFieldError
	return errors.As(err, &fieldErr)
}
