package identity

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore is a process-local Store used when no database is configured and in tests.
type InMemoryStore struct {
	mu     sync.Mutex
	byNorm map[string]Identity
}

// NewInMemoryStore constructs an empty in-memory Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byNorm: make(map[string]Identity)}
}

// FindByUsername returns the identity for username (case-insensitive).
func (s *InMemoryStore) FindByUsername(ctx context.Context, username string) (Identity, error) {
	const op = "identity.FindByUsername"

	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	norm := NormalizeUsername(username)
	if norm == "" {
		return Identity{}, invalid(op, "username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.byNorm[norm]
	if !ok {
		return Identity{}, NotFoundError{Op: op, Resource: "identity"}
	}
	return cloneIdentity(ident), nil
}

// InsertIdentity inserts in unless its username is already present.
func (s *InMemoryStore) InsertIdentity(ctx context.Context, in NewIdentity) (Identity, error) {
	const op = "identity.InsertIdentity"

	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	ident, norm, err := prepare(op, in)
	if err != nil {
		return Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNorm[norm]; exists {
		return Identity{}, ConflictError{Op: op, Field: "username"}
	}
	s.byNorm[norm] = ident
	return cloneIdentity(ident), nil
}

// Len returns the number of stored identities.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byNorm)
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(context.Context) error { return nil }

func cloneIdentity(i Identity) Identity {
	if i.AvatarURL != nil {
		a := strings.Clone(*i.AvatarURL)
		i.AvatarURL = &a
	}
	return i
}
