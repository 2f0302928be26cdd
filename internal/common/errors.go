// Package common defines shared constants and sentinel errors used across
// the onboarding client, its storage backends and the account API client.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Wizard flow errors.
	ErrValidation        = errors.New("validation error")
	ErrCommit            = errors.New("step commit failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrCommitInFlight    = errors.New("step commit already in flight")
	ErrClosed            = errors.New("wizard closed")

	// Payment authorization errors.
	ErrAuthorizationDeclined = errors.New("payment authorization declined")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
