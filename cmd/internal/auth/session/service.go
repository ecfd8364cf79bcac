package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gatekeep/cmd/identity"
	"gatekeep/cmd/security/token"
)

// maxTokenLen bounds presented tokens to avoid pathological inputs.
const maxTokenLen = 512

// Service implements establish / resolve / revoke over a Store.
type Service struct {
	cfg    Config
	store  Store
	tokens token.Hasher
	log    *slog.Logger
}

// Issued is the result of Establish. Token must be shown to the client exactly once and never logged.
type Issued struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
	Snapshot  Snapshot
}

// NewService constructs a Service.
func NewService(cfg Config, store Store, tokens token.Hasher, log *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, store: store, tokens: tokens, log: log}, nil
}

// TTL returns the fixed session window.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// Establish creates a new session holding a snapshot of ident.
func (s *Service) Establish(ctx context.Context, now time.Time, ident identity.Identity) (Issued, error) {
	const op = "session.Establish"

	if strings.TrimSpace(ident.ID) == "" {
		return Issued{}, fmt.Errorf("%s: identity has no id", op)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	now = now.UTC().Truncate(time.Microsecond)

	plain, err := token.NewOpaque(s.cfg.TokenBytes)
	if err != nil {
		return Issued{}, fmt.Errorf("%s: %w", op, err)
	}
	id, err := identity.NewULID(now)
	if err != nil {
		return Issued{}, fmt.Errorf("%s: %w", op, err)
	}

	rec := Record{
		ID:         id,
		TokenHash:  s.tokens.Digest(plain),
		IdentityID: ident.ID,
		Snapshot:   SnapshotOf(ident, now),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.TTL),
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.store.Create(wctx, rec); err != nil {
		return Issued{}, fmt.Errorf("%s: %w", op, err)
	}

	return Issued{
		SessionID: rec.ID,
		Token:     plain,
		ExpiresAt: rec.ExpiresAt,
		Snapshot:  rec.Snapshot,
	}, nil
}

// Resolve returns the snapshot bound to tok.
// Unknown, revoked or malformed tokens yield *SessionError{ErrSessionInvalid};
// elapsed sessions yield *SessionError{ErrSessionExpired}. Other errors are store failures.
func (s *Service) Resolve(ctx context.Context, now time.Time, tok string) (Snapshot, error) {
	const op = "session.Resolve"

	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return Snapshot{}, &SessionError{Kind: ErrSessionInvalid}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash := s.tokens.Digest(tok)
	rec, err := s.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Snapshot{}, &SessionError{Kind: ErrSessionInvalid}
		}
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	if !token.EqualConstantTime(rec.TokenHash, hash) {
		return Snapshot{}, &SessionError{Kind: ErrSessionInvalid}
	}

	if !rec.ExpiresAt.After(now) {
		// Best-effort cleanup; the session is unusable either way.
		if err := s.store.Delete(ctx, hash); err != nil {
			s.log.Warn("session.resolve.expired_delete.fail", "session_id", rec.ID, "err", err)
		}
		return Snapshot{}, &SessionError{Kind: ErrSessionExpired}
	}

	return rec.Snapshot, nil
}

// Revoke invalidates tok. It is idempotent: unknown or blank tokens succeed.
func (s *Service) Revoke(ctx context.Context, tok string) error {
	const op = "session.Revoke"

	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return nil
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.store.Delete(wctx, s.tokens.Digest(tok)); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Sweep deletes expired sessions when the store needs explicit cleanup.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int64, error) {
	sw, ok := s.store.(Sweeper)
	if !ok {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return sw.DeleteExpired(ctx, now)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if _, ok := s.store.(Sweeper); !ok || interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.Sweep(ctx, now.UTC())
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warn("session.sweep.fail", "err", err)
				}
				continue
			}
			if n > 0 {
				s.log.Info("session.sweep.ok", "deleted", n)
			}
		}
	}
}
