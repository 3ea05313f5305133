package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("challenge not found: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("run: %w", ErrForbidden), http.StatusForbidden},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"invalid state", fmt.Errorf("already joined: %w", ErrInvalidState), http.StatusBadRequest},
		{"conflict", ErrConflict, http.StatusConflict},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"app error code", New(http.StatusTeapot, "short and stout", nil), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapErrorToStatus(tt.err); got != tt.want {
				t.Errorf("MapErrorToStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := New(http.StatusBadRequest, "runId is required", ErrInvalidInput)
	if err.Error() != "runId is required" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected AppError to unwrap to ErrInvalidInput")
	}
}
