package account

import (
	"context"
	"fmt"

	"gatekeep/cmd/identity"
)

// Authenticate verifies a username/password pair.
//
// Unknown usernames and federated identities both fail with ErrUserNotFound;
// a wrong password fails with ErrBadPassword. Both are *AuthFailure. Any other
// error is a store failure.
func (s *Service) Authenticate(ctx context.Context, username, plain string) (identity.Identity, error) {
	const op = "account.Authenticate"

	ctx, span := s.tracer.Start(ctx, op)

	ident, err := s.store.FindByUsername(ctx, username)
	switch {
	case identity.IsNotFound(err), identity.IsInvalidInput(err):
		s.hasher.Verify(ctx, plain, s.dummyDigest)
		endSpan(span, "user_not_found", nil)
		return identity.Identity{}, &AuthFailure{Kind: ErrUserNotFound}
	case err != nil:
		endSpan(span, "store_error", err)
		return identity.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if !ident.HasLocalPassword() {
		s.hasher.Verify(ctx, plain, s.dummyDigest)
		endSpan(span, "user_not_found", nil)
		return identity.Identity{}, &AuthFailure{Kind: ErrUserNotFound}
	}

	if !s.hasher.Verify(ctx, plain, ident.CredentialDigest) {
		endSpan(span, "bad_password", nil)
		return identity.Identity{}, &AuthFailure{Kind: ErrBadPassword}
	}

	endSpan(span, "ok", nil)
	return ident, nil
}
