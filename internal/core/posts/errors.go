package posts

import (
	"errors"
	"fmt"
)

// Sentinel errors for common post operations
var (
	// ErrNotFound is returned when a post is not found by ID
	ErrNotFound = errors.New("post not found")

	// ErrAlreadyLiked is returned when the user already appears in the post's likes
	ErrAlreadyLiked = errors.New("post already liked")

	// ErrNotLiked is returned when unliking a post the user has not liked
	ErrNotLiked = errors.New("post has not yet been liked")
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a like-ledger conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyLiked) || errors.Is(err, ErrNotLiked)
}
