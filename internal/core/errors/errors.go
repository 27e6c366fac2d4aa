package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDenied             = errors.New("action denied")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrIdentity           = errors.New("caller identity could not be resolved")

	// User validation
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailRequired = errors.New("email is required")
	ErrUserDisabled  = errors.New("user account is disabled")

	// Department
	ErrDepartmentNotFound = errors.New("department not found")

	// Ticket validation
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title exceeds maximum length of 255 characters")
	ErrTextTooLong       = errors.New("text exceeds maximum length")
	ErrInvalidType       = errors.New("invalid ticket type")
	ErrInvalidStatus     = errors.New("invalid ticket status")
	ErrCreatorRequired   = errors.New("creator ID is required")
	ErrMissingFeedback   = errors.New("feedback is required to close a ticket")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Assignment preconditions
	ErrNotEligible     = errors.New("user is not eligible to take this ticket")
	ErrAlreadyTerminal = errors.New("ticket is already in a terminal state")
	ErrAlreadyAssigned = errors.New("ticket is already assigned")

	// Optimistic concurrency
	ErrConcurrentModification = errors.New("ticket was modified concurrently")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// TransitionError reports an illegal status change, naming both the current
// and the requested state. It unwraps to ErrInvalidTransition so callers can
// still match it with errors.Is.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError builds a TransitionError for the given states.
func NewTransitionError(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// DeniedError carries the human-readable reason an authorization check failed.
// It unwraps to ErrDenied.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	if e.Reason != "" {
		return "denied: " + e.Reason
	}
	return ErrDenied.Error()
}

func (e *DeniedError) Unwrap() error {
	return ErrDenied
}

// NewDeniedError builds a DeniedError with the given reason.
func NewDeniedError(reason string) *DeniedError {
	return &DeniedError{Reason: reason}
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrDenied,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
