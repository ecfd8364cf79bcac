package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gatekeep/cmd/identity"
)

// RegisterInput is the user-supplied registration form.
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Password  string
}

func (in RegisterInput) validate() error {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return errors.New("username is required")
	}
	addr, err := mail.ParseAddress(username)
	if err != nil || addr.Address != username {
		return errors.New("username must be an email address")
	}
	if in.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Register creates a local-password identity.
//
// The existence check is only a fast path; the store's uniqueness constraint is
// the final arbiter, and a conflicting concurrent insert also yields ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (identity.Identity, error) {
	const op = "account.Register"

	ctx, span := s.tracer.Start(ctx, op)

	if err := in.validate(); err != nil {
		endSpan(span, "invalid_input", nil)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrInvalidInput, Err: err}
	}

	_, err := s.store.FindByUsername(ctx, in.Username)
	switch {
	case err == nil:
		endSpan(span, "already_exists", nil)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrAlreadyExists}
	case !identity.IsNotFound(err):
		endSpan(span, "store_error", err)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrStore, Err: err}
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if identity.IsPolicyError(err) {
			endSpan(span, "invalid_input", nil)
			return identity.Identity{}, &RegistrationFailure{Kind: ErrInvalidInput, Err: err}
		}
		endSpan(span, "hashing_failed", err)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrHashingFailed, Err: err}
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	ident, err := s.store.InsertIdentity(wctx, identity.NewIdentity{
		Username:         in.Username,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		CredentialKind:   identity.CredentialLocalPassword,
		CredentialDigest: digest,
	})
	switch {
	case err == nil:
	case identity.IsConflict(err):
		endSpan(span, "already_exists", nil)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrAlreadyExists, Err: err}
	case identity.IsInvalidInput(err):
		endSpan(span, "invalid_input", nil)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrInvalidInput, Err: err}
	default:
		endSpan(span, "store_error", err)
		return identity.Identity{}, &RegistrationFailure{Kind: ErrStore, Err: err}
	}

	endSpan(span, "ok", nil)
	return ident, nil
}
