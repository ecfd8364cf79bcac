package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionInvalid means the presented token is malformed or unknown (including revoked).
	ErrSessionInvalid = errors.New("session invalid")

	// ErrSessionExpired means the session existed but its fixed window has elapsed.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionNotFound is returned by stores when no record matches a token digest.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// SessionError is returned by Resolve when the caller is not authenticated.
// Both kinds must be treated identically by callers.
type SessionError struct {
	Kind error
}

func (e *SessionError) Error() string { return fmt.Sprintf("session: unauthenticated: %v", e.Kind) }
func (e *SessionError) Unwrap() error { return e.Kind }

// IsUnauthenticated reports whether err means "no valid session".
// Store failures are not unauthenticated; they are operational errors.
func IsUnauthenticated(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}
