package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInternal          = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// NotQualified creates a 422 error for an assignment attempt outside an
// expert's qualified domains.
func NotQualified(expertID, domain string) *AppError {
	return &AppError{
		Code:    "NOT_QUALIFIED",
		Message: fmt.Sprintf("expert %s is not qualified for domain %q", expertID, domain),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidInput,
	}
}

// NotAssigned creates a 422 error for feedback submitted by an expert who
// does not hold the review's current assignment.
func NotAssigned(expertID, reviewID string) *AppError {
	return &AppError{
		Code:    "NOT_ASSIGNED",
		Message: fmt.Sprintf("expert %s is not assigned to review %s", expertID, reviewID),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidInput,
	}
}

// CapacityExceeded creates a 409 error for an assignment attempt against an
// expert already at their concurrent-review ceiling.
func CapacityExceeded(expertID string) *AppError {
	return &AppError{
		Code:    "CAPACITY_EXCEEDED",
		Message: fmt.Sprintf("expert %s is at maximum concurrent reviews", expertID),
		Status:  http.StatusConflict,
		Err:     ErrCapacityExceeded,
	}
}

// InvalidTransition creates a 409 error for a disallowed review status change.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("cannot transition review from %q to %q", from, to),
		Status:  http.StatusConflict,
		Err:     ErrInvalidTransition,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
