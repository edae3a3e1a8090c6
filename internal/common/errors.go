// Package common defines shared constants and sentinel errors used across
// gophmail layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("invalid email or password")
	ErrorValidation   = errors.New("validation error")
)

// Access token errors, one per rejection reason so clients can branch on them.
var (
	ErrMissingToken     = errors.New("access token required")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrUserNotFound     = errors.New("user not found")
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAuthRequired     = errors.New("authentication required")
	ErrInsufficientRole = errors.New("insufficient permissions")
)

// Token lifecycle errors.
var (
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ErrMissingSecret is a configuration error: the signing secret is unset.
// It is fatal at startup and never surfaces on a request path.
var ErrMissingSecret = errors.New("jwt signing secret is not configured")
