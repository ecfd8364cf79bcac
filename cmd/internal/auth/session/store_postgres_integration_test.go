package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatekeep/cmd/identity"
)

// Integration tests are opt-in and require GATEKEEP_TEST_DATABASE_URL.

func mustNewTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("GATEKEEP_TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: GATEKEEP_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		if os.Getenv("CI") == "" {
			t.Skipf("integration test skipped: Postgres unreachable: %v", err)
		}
		t.Fatalf("ping: %v", err)
	}

	id, err := identity.NewULID(time.Now())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	schema := "gk_it_" + strings.ToLower(id)
	quoted := pgx.Identifier{schema}.Sanitize()

	ddl := fmt.Sprintf(`
CREATE SCHEMA %s;
CREATE TABLE %s (
  token_hash TEXT PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  identity_id TEXT NOT NULL,
  snapshot JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);`, quoted, identity.PGIdent(schema, "sessions"))
	if _, err := pool.Exec(ctx, ddl); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+quoted+` CASCADE`)
	})

	s, err := NewPostgresStore(pool, schema)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	return s
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	exerciseLifecycle(t, mustNewTestPostgresStore(t))
}

func TestPostgresStore_Expiry(t *testing.T) {
	exerciseExpiry(t, mustNewTestPostgresStore(t))
}

func TestNewPostgresStore_RejectsBadSchema(t *testing.T) {
	if _, err := NewPostgresStore(nil, "x"); err == nil {
		t.Fatalf("expected nil pool error")
	}
}
