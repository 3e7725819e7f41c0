package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFollowsCode(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{NewValidation("x"), http.StatusBadRequest},
		{NewNotFound("item", "BREAD"), http.StatusNotFound},
		{NewInsufficientStock("BREAD", "5", "2"), http.StatusUnprocessableEntity},
		{NewInvalidQuantity("BREAD", "x"), http.StatusUnprocessableEntity},
		{NewBatchLocked("2024-03-01", "Main", "Normal Item"), http.StatusLocked},
		{NewAlreadyFinished("2024-03-01", "Main", "Normal Item"), http.StatusConflict},
		{NewUnauthorized("x"), http.StatusUnauthorized},
		{NewForbidden("x"), http.StatusForbidden},
		{NewDuplicate("branch", "code", "Main"), http.StatusConflict},
		{NewInternal(errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.status, GetHTTPStatus(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
}

func TestDetailsAndChain(t *testing.T) {
	err := NewInsufficientStock("FLOUR", "2.500", "1.250")
	assert.Equal(t, "2.500", err.Details["requested"])
	assert.Equal(t, "1.250", err.Details["available"])

	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("finish: %w", NewInternal(cause))
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, IsNotFound(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Contains(t, appErr.Error(), "connection reset")
	assert.False(t, IsAppError(cause))
}
