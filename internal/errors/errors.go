package errors

import (
	"errors"
	"fmt"
)

// Error classes shared by every service. Callers match them with Is.
var (
	// Validation errors: malformed input, always caller-fixable
	ErrValidation = errors.New("validation failed")

	// Authentication / authorization errors
	ErrInvalidCredentials = errors.New("invalid username or token")
	ErrForbidden          = errors.New("admin privileges required")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")

	// Transient
	ErrRateLimited = errors.New("too many attempts, try again later")

	// Conflicts
	ErrConflict          = errors.New("conflict")
	ErrDuplicateUsername = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrUsernameTaken     = fmt.Errorf("requested username is taken: %w", ErrConflict)
	ErrDuplicateRequest  = fmt.Errorf("a pending request already exists: %w", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", ErrConflict)
	ErrTokenRevoked      = fmt.Errorf("token already revoked: %w", ErrConflict)

	// Lookups
	ErrNotFound = errors.New("not found")

	// Collaborators and persistence
	ErrDependency = errors.New("dependency failure")
	ErrStorage    = errors.New("storage failure")
)

// Public error codes returned by the intake surface.
const (
	CodeValidation       = "ERR_VALIDATION"
	CodeRateLimit        = "ERR_RATE_LIMIT"
	CodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
	CodeInternal         = "ERR_INTERNAL"
)

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidation returns a ValidationError for field.
func NewValidation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PublicCode maps an error onto the intake surface error codes.
func PublicCode(err error) string {
	switch {
	case Is(err, ErrValidation):
		return CodeValidation
	case Is(err, ErrRateLimited):
		return CodeRateLimit
	case Is(err, ErrDuplicateRequest):
		return CodeDuplicateRequest
	default:
		return CodeInternal
	}
}

// IsAuth reports whether err belongs to the authentication class.
func IsAuth(err error) bool {
	return Is(err, ErrInvalidCredentials) ||
		Is(err, ErrSessionNotFound) ||
		Is(err, ErrSessionExpired)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
