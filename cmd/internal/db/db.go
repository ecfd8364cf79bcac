// Package db owns the embedded SQL migrations and database handles shared by the
// identity and session stores.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // registers sqlite://
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Driver names the backing database.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ParseURL classifies a database URL:
// "" selects memory, postgres:// or postgresql:// selects Postgres,
// sqlite://<path> selects SQLite and returns the file path.
func ParseURL(raw string) (Driver, string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return DriverMemory, "", nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" {
			return "", "", fmt.Errorf("db: sqlite url has no path")
		}
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("db: unsupported database url scheme")
	}
}

// PoolConfig tunes the Postgres pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPool opens a pgx pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: parse postgres url: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping postgres: %w", err)
	}
	return pool, nil
}

// OpenSQLite opens the SQLite file at path with WAL, foreign keys and a busy timeout.
// A single connection serializes writers, which SQLite requires anyway.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping sqlite: %w", err)
	}
	return sqlDB, nil
}

// Direction selects which way Migrate moves.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies (or rolls back) the embedded migrations for the database at rawURL.
// It is a no-op for the memory driver.
func Migrate(rawURL string, dir Direction) error {
	driver, target, err := ParseURL(rawURL)
	if err != nil {
		return err
	}

	var sub, dbURL string
	switch driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
		sub = "migrations/postgres"
		dbURL, err = pgx5URL(target)
		if err != nil {
			return err
		}
	case DriverSQLite:
		sub = "migrations/sqlite"
		dbURL = "sqlite://" + target
	}

	src, err := iofs.New(migrationsFS, sub)
	if err != nil {
		return fmt.Errorf("db: migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("db: migrate init: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("db: unknown migration direction %q", dir)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migrate %s: %w", dir, err)
	}
	return nil
}

func pgx5URL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("db: parse postgres url: %w", err)
	}
	u.Scheme = "pgx5"
	return u.String(), nil
}
