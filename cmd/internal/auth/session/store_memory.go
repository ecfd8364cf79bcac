package session

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a process-local Store used when no database is configured and in tests.
type InMemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

// NewInMemoryStore constructs an empty in-memory Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{recs: make(map[string]Record)}
}

// Create persists rec.
func (s *InMemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.TokenHash] = rec
	return nil
}

// Get loads a record by token digest.
func (s *InMemoryStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[tokenHash]
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

// Delete removes a record if present.
func (s *InMemoryStore) Delete(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, tokenHash)
	return nil
}

// DeleteExpired removes records whose window has elapsed at now.
func (s *InMemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.recs {
		if !rec.ExpiresAt.After(now) {
			delete(s.recs, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}
