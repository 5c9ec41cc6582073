package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore wraps the single persistent slot holding the bearer token
type TokenStore interface {
	Save(token string) error
	// Read returns ErrTokenNotFound when the slot is empty
	Read() (string, error)
	Clear() error
}

// AuthService is the external authentication API
type AuthService interface {
	Register(ctx context.Context, payload RegistrationRequest) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
}

// SessionReader exposes a read-only view of the session
type SessionReader interface {
	Snapshot() Snapshot
}

// Navigator moves the user to a target path, optionally recording where
// they came from so a later login can send them back.
type Navigator interface {
	Navigate(to string, returnTo string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(to string, returnTo string)

func (f NavigatorFunc) Navigate(to string, returnTo string) {
	f(to, returnTo)
}

// UnauthorizedHandler is invoked by SecureClient when a protected call
// responds with 401 or 403.
type UnauthorizedHandler func(ctx context.Context, status int)

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Error(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}

// DefaultLogger returns the stdout logger used when none is configured
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
