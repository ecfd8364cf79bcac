package app

import (
	"context"
	"os/signal"
	"syscall"

	"gatekeep/cmd/internal/db"
)

// Serve loads config, builds the App and runs it until SIGINT/SIGTERM.
// It returns an error instead of calling os.Exit to keep defers effective.
func Serve(envFile string) error {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// Migrate applies or rolls back every migration against the configured database.
func Migrate(envFile string, dir db.Direction) error {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, nil)

	if err := db.Migrate(cfg.DatabaseURL, dir); err != nil {
		log.Error("db.migrate.fail", "direction", dir, "err", err)
		return err
	}
	log.Info("db.migrate.ok", "direction", dir)
	return nil
}
