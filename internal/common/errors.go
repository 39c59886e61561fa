// Package common defines shared constants and sentinel errors used across
// the cosplaiii client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Backend/service-level errors.
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")
	ErrInternal    = errors.New("internal error")

	// Auth errors.
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSignInRequired = errors.New("you must sign in first")
	ErrForbidden      = errors.New("forbidden")

	// Device errors.
	ErrPermissionDenied = errors.New("permission denied")
)
