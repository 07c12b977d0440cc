package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NotFound("review", "abc-123")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "abc-123")
}

func TestAppError_Unwrap(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
	}{
		{"not found", NotFound("expert", "e1"), ErrNotFound},
		{"invalid input", InvalidInput("bad priority"), ErrInvalidInput},
		{"not qualified", NotQualified("e1", "scientific"), ErrInvalidInput},
		{"not assigned", NotAssigned("e1", "r1"), ErrInvalidInput},
		{"capacity exceeded", CapacityExceeded("e1"), ErrCapacityExceeded},
		{"invalid transition", InvalidTransition("approved", "pending"), ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"app error not found", NotFound("review", "r1"), http.StatusNotFound},
		{"app error capacity", CapacityExceeded("e1"), http.StatusConflict},
		{"app error transition", InvalidTransition("approved", "in_review"), http.StatusConflict},
		{"app error not qualified", NotQualified("e1", "spiritual"), http.StatusUnprocessableEntity},
		{"wrapped sentinel", fmt.Errorf("get review: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped invalid input", fmt.Errorf("submit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"wrapped capacity", fmt.Errorf("reserve: %w", ErrCapacityExceeded), http.StatusConflict},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrCapacityExceeded, "assign review")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "assign review")
}
