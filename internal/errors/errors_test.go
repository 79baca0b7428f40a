package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeAlreadyUndone, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
			assert.Equal(t, tt.want, (&Error{Code: tt.code}).GetStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("undo h1: %w", AlreadyUndone("bulk update h1 was already undone"))

	assert.True(t, errors.Is(err, ErrAlreadyUndone))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, CodeAlreadyUndone, CodeOf(err))
}

func TestWrapf_KeepsCause(t *testing.T) {
	cause := errors.New("name is blank")
	err := Wrapf(cause, CodeValidation, "invalid %s name %q", "person", " ")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "name is blank")
}

func TestWithDetails_DoesNotMutate(t *testing.T) {
	base := Validation("validation failed")
	detailed := base.WithDetails(map[string]string{"title": "is required"})

	assert.Nil(t, base.Details)
	require.NotNil(t, detailed.Details)
	assert.Equal(t, base.Code, detailed.Code)
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk full")))
}
