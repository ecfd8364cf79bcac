package account

import (
	"context"

	"gatekeep/cmd/identity"
)

// ResolveOrCreate maps an externally asserted profile to exactly one local identity.
//
// An existing identity with the profile's email is returned unchanged, whether it
// was created locally or by an earlier federated login. Otherwise a federated
// identity is inserted; if a concurrent request wins the insert, the winner is
// re-fetched and returned. All failures are *FederationError.
func (s *Service) ResolveOrCreate(ctx context.Context, p identity.ExternalProfile) (identity.Identity, error) {
	const op = "account.ResolveOrCreate"

	ctx, span := s.tracer.Start(ctx, op)

	if err := p.Validate(); err != nil {
		endSpan(span, "provider_error", err)
		return identity.Identity{}, &FederationError{Kind: ErrProvider, Err: err}
	}

	existing, err := s.store.FindByUsername(ctx, p.Email)
	switch {
	case err == nil:
		endSpan(span, "existing", nil)
		return existing, nil
	case !identity.IsNotFound(err):
		endSpan(span, "store_error", err)
		return identity.Identity{}, &FederationError{Kind: ErrStore, Err: err}
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	created, err := s.store.InsertIdentity(wctx, p.NewFederatedIdentity())
	if err == nil {
		s.log.Info("account.federate.created", "identity_id", created.ID, "provider", p.Provider)
		endSpan(span, "created", nil)
		return created, nil
	}
	if !identity.IsConflict(err) {
		endSpan(span, "store_error", err)
		return identity.Identity{}, &FederationError{Kind: ErrStore, Err: err}
	}

	// Lost the insert race: the winner's row is now committed.
	winner, err := s.store.FindByUsername(wctx, p.Email)
	if err != nil {
		endSpan(span, "store_error", err)
		return identity.Identity{}, &FederationError{Kind: ErrStore, Err: err}
	}
	s.log.Info("account.federate.conflict_refetch", "identity_id", winner.ID, "provider", p.Provider)
	endSpan(span, "existing_after_conflict", nil)
	return winner, nil
}
