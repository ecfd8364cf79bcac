package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - InsertIdentity is a single INSERT ... ON CONFLICT DO NOTHING statement, so the
//   uniqueness constraint on username_norm is the only arbiter between racing writers.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is the schema created by the bundled migrations.
const DefaultSchema = "gatekeep"

// WithSchema sets the Postgres schema used by the store (default "gatekeep").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !PGIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const pgIdentityColumns = `id, username, first_name, last_name, credential_kind, credential_digest, avatar_url, created_at`

// FindByUsername returns the identity for username (case-insensitive).
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (Identity, error) {
	const op = "identity.FindByUsername"

	if s == nil || s.pool == nil {
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
		out  Identity
		kind string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgIdentityColumns+`
		   FROM `+PGIdent(s.schema, "identities")+`
		  WHERE username_norm = $1`,
		norm,
	).Scan(
		&out.ID,
		&out.Username,
		&out.FirstName,
		&out.LastName,
		&kind,
		&out.CredentialDigest,
		&out.AvatarURL,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, NotFoundError{Op: op, Resource: "identity"}
		}
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	out.CredentialKind = CredentialKind(kind)
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

// InsertIdentity inserts in unless its username is already present.
func (s *PostgresStore) InsertIdentity(ctx context.Context, in NewIdentity) (Identity, error) {
	const op = "identity.InsertIdentity"

	if s == nil || s.pool == nil {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	ident, norm, err := prepare(op, in)
	if err != nil {
		return Identity{}, err
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+PGIdent(s.schema, "identities")+` (
		     id, username, username_norm, first_name, last_name,
		     credential_kind, credential_digest, avatar_url, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		   ON CONFLICT (username_norm) DO NOTHING
		   RETURNING id`,
		ident.ID,
		ident.Username,
		norm,
		ident.FirstName,
		ident.LastName,
		string(ident.CredentialKind),
		ident.CredentialDigest,
		ident.AvatarURL,
		ident.CreatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ConflictError{Op: op, Field: "username"}
		}
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Identity{}, ConflictError{Op: op, Field: field}
		}
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return ident, nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PGIdentIsValid reports whether s is a plain PostgreSQL identifier.
func PGIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// PGIdent returns the quoted schema-qualified identifier schema.name.
func PGIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to heuristic substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_identities_username_norm":
		return "username", true
	case "identities_pkey":
		return "id", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		default:
			return "unique", true
		}
	}
}
