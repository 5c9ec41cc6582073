package auth

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeTokenNotFound     = "TOKEN_NOT_FOUND"
	TextCodeTokenMalformed    = goerrors.TextCodeTokenMalformed
	TextCodeSessionSuperseded = "SESSION_SUPERSEDED"
	TextCodeUnauthenticated   = "UNAUTHENTICATED"
	TextCodeServiceMissing    = "AUTH_SERVICE_MISSING"
	TextCodePasswordMismatch  = "PASSWORD_MISMATCH"
)

// ErrTokenNotFound is returned by a TokenStore with an empty slot
var ErrTokenNotFound = goerrors.New("token not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeTokenNotFound)

// ErrSessionSuperseded is returned when a sign-out happened while a
// sign-in or registration was in flight. The late result is discarded.
var ErrSessionSuperseded = goerrors.New("session superseded by sign out", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeSessionSuperseded)

// ErrUnauthenticated is returned by operations that need an identity
// when the session has none.
var ErrUnauthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeUnauthenticated)

// ErrMissingService is returned when the provider has no AuthService
var ErrMissingService = goerrors.New("auth service not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeServiceMissing)

// NewServiceError builds the error for a non-2xx answer from the backend.
// 401 and 403 are authentication failures, anything else is external.
// The server message, when present, is the error message.
func NewServiceError(status int, message string) *goerrors.Error {
	category := goerrors.CategoryExternal
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		category = goerrors.CategoryAuth
	}

	meta := map[string]any{"status": status, "server_message": message != ""}
	if message == "" {
		message = strings.ToLower(http.StatusText(status))
	}

	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(goerrors.HTTPStatusToTextCode(status)).
		WithMetadata(meta)
}

func newDecodeError(reason string, source error) *goerrors.Error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryBadInput, "decode token: "+reason)
	} else {
		err = goerrors.New("decode token: "+reason, goerrors.CategoryBadInput)
	}
	return err.WithTextCode(TextCodeTokenMalformed)
}

// IsStatus returns true if err wraps a service error with the given status
func IsStatus(err error, code int) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Code != 0 && richErr.Code == code
	}
	return false
}

// IsAuthorizationFailure reports 401 and 403 errors
func IsAuthorizationFailure(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}

// IsDecodeError will check for malformed token errors
func IsDecodeError(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed
}

// MessageOr returns the server provided message carried by err, or the
// fallback when there is none.
func MessageOr(err error, fallback string) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if fromServer, _ := richErr.Metadata["server_message"].(bool); fromServer {
			return richErr.Message
		}
	}
	return fallback
}
