package account

import (
	"errors"
	"fmt"
)

// Failure kinds. Callers classify with errors.Is.
var (
	// AuthFailure kinds. Both map to one generic "invalid credentials" outcome.
	ErrUserNotFound = errors.New("user not found")
	ErrBadPassword  = errors.New("bad password")

	// RegistrationFailure kinds.
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrHashingFailed = errors.New("hashing failed")

	// Shared by RegistrationFailure and FederationError.
	ErrStore = errors.New("store error")

	// FederationError kinds.
	ErrProvider = errors.New("provider error")
)

// AuthFailure is returned by Authenticate when the credentials do not identify a user.
type AuthFailure struct {
	Kind error
}

func (e *AuthFailure) Error() string { return fmt.Sprintf("account.Authenticate: %v", e.Kind) }
func (e *AuthFailure) Unwrap() error { return e.Kind }

// RegistrationFailure is returned by Register.
type RegistrationFailure struct {
	Kind error
	Err  error
}

func (e *RegistrationFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("account.Register: %v", e.Kind)
	}
	return fmt.Sprintf("account.Register: %v: %v", e.Kind, e.Err)
}

func (e *RegistrationFailure) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// FederationError is returned by ResolveOrCreate and by federation callers.
type FederationError struct {
	Kind error
	Err  error
}

func (e *FederationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("account.Federate: %v", e.Kind)
	}
	return fmt.Sprintf("account.Federate: %v: %v", e.Kind, e.Err)
}

func (e *FederationError) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// IsInvalidCredentials reports whether err is an AuthFailure of either kind.
func IsInvalidCredentials(err error) bool {
	var af *AuthFailure
	return errors.As(err, &af)
}

// IsAlreadyExists reports whether err is a duplicate-registration failure.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// NewProviderError wraps a provider-side failure (exchange, claims, validation).
func NewProviderError(err error) error {
	return &FederationError{Kind: ErrProvider, Err: err}
}

func unwrapPair(kind, err error) []error {
	if err == nil {
		return []error{kind}
	}
	return []error{kind, err}
}
