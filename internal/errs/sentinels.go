// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (revision mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller acting on something it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")
)

// Error pairs a sentinel kind with a message meant for API clients.
type Error struct {
	Kind error
	Msg  string
}

// New returns an error of the given kind carrying a client-facing message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

// Unwrap exposes the sentinel so errors.Is keeps working.
func (e *Error) Unwrap() error { return e.Kind }

// Message returns the client-facing message of err if one was attached,
// otherwise fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
