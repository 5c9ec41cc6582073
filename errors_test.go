package auth_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	auth "github.com/goliatone/go-donor-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		category goerrors.Category
		textCode string
		expected string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			message:  "Invalid password",
			category: goerrors.CategoryAuth,
			textCode: "UNAUTHORIZED",
			expected: "Invalid password",
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			message:  "forbidden access",
			category: goerrors.CategoryAuth,
			textCode: "FORBIDDEN",
			expected: "forbidden access",
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			message:  "User already exists",
			category: goerrors.CategoryExternal,
			textCode: "BAD_REQUEST",
			expected: "User already exists",
		},
		{
			name:     "no server message",
			status:   http.StatusNotFound,
			category: goerrors.CategoryExternal,
			textCode: "NOT_FOUND",
			expected: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.NewServiceError(tt.status, tt.message)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.status, err.Code)
			assert.Equal(t, tt.textCode, err.TextCode)
			assert.Equal(t, tt.expected, err.Message)
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	assert.True(t, goerrors.IsNotFound(auth.ErrTokenNotFound))
	assert.True(t, goerrors.IsAuth(auth.ErrUnauthenticated))
	assert.True(t, goerrors.IsCategory(auth.ErrSessionSuperseded, goerrors.CategoryConflict))
	assert.True(t, goerrors.IsValidation(auth.ErrPasswordMismatch))
	assert.Equal(t, auth.TextCodeServiceMissing, auth.ErrMissingService.TextCode)

	wrapped := fmt.Errorf("read token: %w", auth.ErrTokenNotFound)
	assert.ErrorIs(t, wrapped, auth.ErrTokenNotFound)
}

func TestIsStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		expected bool
	}{
		{
			name:     "matching service error",
			err:      auth.NewServiceError(http.StatusConflict, ""),
			code:     http.StatusConflict,
			expected: true,
		},
		{
			name:     "wrapped service error",
			err:      fmt.Errorf("create request: %w", auth.NewServiceError(http.StatusBadRequest, "")),
			code:     http.StatusBadRequest,
			expected: true,
		},
		{
			name:     "different status",
			err:      auth.NewServiceError(http.StatusBadRequest, ""),
			code:     http.StatusConflict,
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("HTTP 400"),
			code:     http.StatusBadRequest,
			expected: false,
		},
		{
			name:     "rich error without code",
			err:      auth.ErrMissingService,
			code:     0,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     http.StatusBadRequest,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsStatus(tt.err, tt.code))
		})
	}
}

func TestIsAuthorizationFailure(t *testing.T) {
	assert.True(t, auth.IsAuthorizationFailure(auth.NewServiceError(http.StatusUnauthorized, "")))
	assert.True(t, auth.IsAuthorizationFailure(auth.NewServiceError(http.StatusForbidden, "")))
	assert.True(t, auth.IsAuthorizationFailure(auth.ErrUnauthenticated))
	assert.False(t, auth.IsAuthorizationFailure(auth.NewServiceError(http.StatusInternalServerError, "")))
	assert.False(t, auth.IsAuthorizationFailure(auth.ErrTokenNotFound))
	assert.False(t, auth.IsAuthorizationFailure(nil))
}

func TestIsDecodeError(t *testing.T) {
	_, err := auth.DecodeToken("a.!!!.c")
	require.Error(t, err)

	wrapped := fmt.Errorf("init: %w", err)
	assert.True(t, auth.IsDecodeError(wrapped))
	assert.True(t, goerrors.IsCategory(wrapped, goerrors.CategoryBadInput))
	assert.NotNil(t, errors.Unwrap(err), "base64 failure is kept as the source")

	assert.False(t, auth.IsDecodeError(errors.New("payload")))
	assert.False(t, auth.IsDecodeError(auth.ErrTokenNotFound))
}

func TestMessageOr(t *testing.T) {
	fallback := "Login failed. Invalid email or password."

	assert.Equal(t, "Invalid password", auth.MessageOr(auth.NewServiceError(http.StatusUnauthorized, "Invalid password"), fallback))
	assert.Equal(t, fallback, auth.MessageOr(auth.NewServiceError(http.StatusInternalServerError, ""), fallback))
	assert.Equal(t, fallback, auth.MessageOr(auth.ErrSessionSuperseded, fallback))
	assert.Equal(t, fallback, auth.MessageOr(errors.New("connection refused"), fallback))
	assert.Equal(t, fallback, auth.MessageOr(nil, fallback))
}
