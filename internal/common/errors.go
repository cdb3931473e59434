// Package common defines shared constants and sentinel errors used across
// client and mock API layers of supportdesk. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// ErrNetwork marks failures where no HTTP status could be obtained
	// (connection refused, DNS, TLS, aborted request).
	ErrNetwork = errors.New("network error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrNotLoggedIn is returned by operations that need a session.
	ErrNotLoggedIn = errors.New("not logged in")
)
