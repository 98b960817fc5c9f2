package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("post", 3), http.StatusNotFound},
		{"forbidden", NewForbiddenError("nope"), http.StatusForbidden},
		{"unauthorized", NewUnauthorizedError("who"), http.StatusUnauthorized},
		{"conflict", NewConflictError("already liked"), http.StatusConflict},
		{"validation", NewValidationError("bad"), http.StatusBadRequest},
		{"internal", NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NewConflictError("x")), http.StatusConflict},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWrapInternal_KeepsOriginalMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("duplicate key")
	err := WrapInternal("failed to create post", cause)

	assert.Equal(t, CodeInternal, err.Code)
	assert.Contains(t, err.Message, "duplicate key")
	assert.ErrorIs(t, err, cause)
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCode(fmt.Errorf("wrap: %w", NewNotFoundError("post", 1)), CodeNotFound))
	assert.False(t, IsCode(errors.New("x"), CodeNotFound))
}
