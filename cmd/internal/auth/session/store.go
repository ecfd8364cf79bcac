package session

import (
	"context"
	"time"
)

// Record is a persisted session keyed by token digest.
type Record struct {
	ID         string
	TokenHash  string
	IdentityID string
	Snapshot   Snapshot
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Store abstracts persistence for session state.
type Store interface {
	// Create persists a new record.
	Create(ctx context.Context, rec Record) error

	// Get loads a record by token digest, returning ErrSessionNotFound when absent.
	Get(ctx context.Context, tokenHash string) (Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, tokenHash string) error
}

// Sweeper is implemented by stores that need expired records removed explicitly.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
