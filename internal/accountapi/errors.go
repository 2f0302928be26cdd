package accountapi

import "errors"

var (
	ErrUnavailable  = errors.New("account service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when the backend already holds the record a
	// mutation tries to create (for example an email that is registered).
	ErrConflict = errors.New("account conflict")
	// ErrRejected means the backend refused the input.
	ErrRejected = errors.New("rejected by account service")
)
