package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"not found", NewNotFoundError("missing", nil), http.StatusNotFound},
		{"validation", NewValidationError("bad year", nil), http.StatusBadRequest},
		{"conflict", NewConflictError("busy", nil), http.StatusConflict},
		{"unavailable", NewServiceUnavailableError("db down", nil), http.StatusServiceUnavailable},
		{"internal", NewInternalError("query failed", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.StatusCode())
			assert.NotEmpty(t, tt.err.UserMessage())
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternalError("failed to load status", cause)

	assert.Equal(t, "Internal server error", err.UserMessage())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load status")
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	wrapped := WrapError(NewValidationError("ano must be a number", nil).WithContext("relatorio"), "invalid request")
	assert.Equal(t, http.StatusBadRequest, wrapped.StatusCode())
	assert.Equal(t, "invalid request: ano must be a number", wrapped.UserMessage())
	assert.Equal(t, "relatorio", wrapped.Context)

	plain := WrapError(errors.New("disk full"), "failed to export")
	assert.Equal(t, http.StatusInternalServerError, plain.StatusCode())
}
