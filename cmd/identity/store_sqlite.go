package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store over an embedded SQLite database (modernc.org/sqlite).
// The *sql.DB is owned by the caller.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore constructs a SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil sqlite db")
	}
	return &SQLiteStore{db: db}, nil
}

// FindByUsername returns the identity for username (case-insensitive).
func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (Identity, error) {
	const op = "identity.FindByUsername"

	if s == nil || s.db == nil {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	norm := NormalizeUsername(username)
	if norm == "" {
		return Identity{}, invalid(op, "username is required")
	}

	var (
		out       Identity
		kind      string
		avatar    sql.NullString
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, first_name, last_name, credential_kind, credential_digest, avatar_url, created_at
		   FROM identities
		  WHERE username_norm = ?`,
		norm,
	).Scan(&out.ID, &out.Username, &out.FirstName, &out.LastName, &kind, &out.CredentialDigest, &avatar, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, NotFoundError{Op: op, Resource: "identity"}
		}
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	out.CredentialKind = CredentialKind(kind)
	if avatar.Valid {
		a := avatar.String
		out.AvatarURL = &a
	}
	out.CreatedAt = time.UnixMicro(createdAt).UTC()
	return out, nil
}

// InsertIdentity inserts in unless its username is already present.
func (s *SQLiteStore) InsertIdentity(ctx context.Context, in NewIdentity) (Identity, error) {
	const op = "identity.InsertIdentity"

	if s == nil || s.db == nil {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	ident, norm, err := prepare(op, in)
	if err != nil {
		return Identity{}, err
	}

	var avatar sql.NullString
	if ident.AvatarURL != nil {
		avatar = sql.NullString{String: *ident.AvatarURL, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (
		     id, username, username_norm, first_name, last_name,
		     credential_kind, credential_digest, avatar_url, created_at
		   ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		   ON CONFLICT (username_norm) DO NOTHING`,
		ident.ID,
		ident.Username,
		norm,
		ident.FirstName,
		ident.LastName,
		string(ident.CredentialKind),
		ident.CredentialDigest,
		avatar,
		ident.CreatedAt.UnixMicro(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			field := "unique"
			if strings.Contains(err.Error(), "identities.id") {
				field = "id"
			}
			return Identity{}, ConflictError{Op: op, Field: field}
		}
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Identity{}, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return Identity{}, ConflictError{Op: op, Field: "username"}
	}
	return ident, nil
}

// Ping checks connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
