package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gatekeep/cmd/identity"
	"gatekeep/cmd/internal/auth/session"
	"gatekeep/cmd/internal/db"
)

// pinger is anything /readyz can probe.
type pinger interface {
	Ping(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// stores bundles the selected backends and what must be closed on shutdown.
type stores struct {
	driver     db.Driver
	identities identity.Store
	sessions   session.Store

	checks  map[string]pinger
	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStores selects identity and session backends from cfg.
// Ownership: the app owns pools, *sql.DB and redis clients; stores only borrow them.
func openStores(ctx context.Context, cfg Config, log *slog.Logger) (*stores, error) {
	driver, dsn, err := db.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	st := &stores{driver: driver, checks: map[string]pinger{}}

	if cfg.AutoMigrate && driver != db.DriverMemory {
		if err := db.Migrate(cfg.DatabaseURL, db.Up); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		log.Info("db.migrate.ok", "driver", driver)
	}

	switch driver {
	case db.DriverMemory:
		log.Warn("db.disabled.inmemory_store")
		st.identities = identity.NewInMemoryStore()
		st.sessions = session.NewInMemoryStore()

	case db.DriverPostgres:
		pool, err := db.NewPool(ctx, dsn, db.PoolConfig{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		if err := st.usePostgres(pool); err != nil {
			_ = st.Close()
			return nil, err
		}
		log.Info("db.enabled.postgres_store")

	case db.DriverSQLite:
		sqlDB, err := db.OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, sqlDB.Close)
		if err := st.useSQLite(sqlDB); err != nil {
			_ = st.Close()
			return nil, err
		}
		log.Info("db.enabled.sqlite_store", "path", dsn)
	}

	if cfg.RedisURL != "" {
		if err := st.useRedisSessions(ctx, cfg.RedisURL); err != nil {
			_ = st.Close()
			return nil, err
		}
		log.Info("sessions.redis.enabled")
	}
	return st, nil
}

func (s *stores) usePostgres(pool *pgxpool.Pool) error {
	ids, err := identity.NewPostgresStore(pool)
	if err != nil {
		return err
	}
	sess, err := session.NewPostgresStore(pool, identity.DefaultSchema)
	if err != nil {
		return err
	}
	s.identities, s.sessions = ids, sess
	s.checks["postgres"] = ids
	return nil
}

func (s *stores) useSQLite(sqlDB *sql.DB) error {
	ids, err := identity.NewSQLiteStore(sqlDB)
	if err != nil {
		return err
	}
	sess, err := session.NewSQLiteStore(sqlDB)
	if err != nil {
		return err
	}
	s.identities, s.sessions = ids, sess
	s.checks["sqlite"] = ids
	return nil
}

func (s *stores) useRedisSessions(ctx context.Context, rawURL string) error {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	s.closers = append(s.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	sess, err := session.NewRedisStore(client, "")
	if err != nil {
		return err
	}
	s.sessions = sess
	s.checks["redis"] = pingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	return nil
}
