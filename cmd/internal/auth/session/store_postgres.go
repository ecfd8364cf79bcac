package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatekeep/cmd/identity"
)

// PostgresStore implements Store using PostgreSQL (<schema>.sessions).
// The snapshot is stored as JSONB.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore creates a Postgres-backed session store in schema
// (identity.DefaultSchema when blank).
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrConfig)
	}
	if schema == "" {
		schema = identity.DefaultSchema
	}
	if !identity.PGIdentIsValid(schema) {
		return nil, fmt.Errorf("%w: invalid schema identifier", ErrConfig)
	}
	return &PostgresStore{pool: pool, table: identity.PGIdent(schema, "sessions")}, nil
}

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+s.table+` (
			token_hash, id, identity_id, snapshot, created_at, expires_at
		) VALUES ($1, $2, $3, $4::jsonb, $5, $6)
	`, rec.TokenHash, rec.ID, rec.IdentityID, string(snap), rec.CreatedAt, rec.ExpiresAt)
	return err
}

// Get loads a session row by token digest.
func (s *PostgresStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	var (
		rec  Record
		snap string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, id, identity_id, snapshot::text, created_at, expires_at
		FROM `+s.table+`
		WHERE token_hash = $1
	`, tokenHash).Scan(
		&rec.TokenHash,
		&rec.ID,
		&rec.IdentityID,
		&snap,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(snap), &rec.Snapshot); err != nil {
		return Record{}, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return rec, nil
}

// Delete removes a session row. Missing rows are not an error.
func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpired removes rows whose window has elapsed at now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
