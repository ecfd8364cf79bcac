package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store over an embedded SQLite database.
// Timestamps are stored as unix microseconds; the snapshot as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore constructs a SQLiteStore. The *sql.DB is owned by the caller.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil sqlite db", ErrConfig)
	}
	return &SQLiteStore{db: db}, nil
}

// Create inserts a new session row.
func (s *SQLiteStore) Create(ctx context.Context, rec Record) error {
	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, id, identity_id, snapshot, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TokenHash, rec.ID, rec.IdentityID, string(snap), rec.CreatedAt.UnixMicro(), rec.ExpiresAt.UnixMicro(),
	)
	return err
}

// Get loads a session row by token digest.
func (s *SQLiteStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	var (
		rec                  Record
		snap                 string
		createdAt, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, id, identity_id, snapshot, created_at, expires_at
		   FROM sessions
		  WHERE token_hash = ?`,
		tokenHash,
	).Scan(&rec.TokenHash, &rec.ID, &rec.IdentityID, &snap, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(snap), &rec.Snapshot); err != nil {
		return Record{}, fmt.Errorf("session: decode snapshot: %w", err)
	}
	rec.CreatedAt = time.UnixMicro(createdAt).UTC()
	rec.ExpiresAt = time.UnixMicro(expiresAt).UTC()
	return rec, nil
}

// Delete removes a session row. Missing rows are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

// DeleteExpired removes rows whose window has elapsed at now.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMicro())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
