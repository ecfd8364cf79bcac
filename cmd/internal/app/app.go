// Package app wires the gatekeep server runtime: config, logging, storage backends,
// HTTP routes and background session sweeping.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gatekeep/cmd/identity"
	"gatekeep/cmd/internal/auth/account"
	authapi "gatekeep/cmd/internal/auth/api"
	"gatekeep/cmd/internal/auth/federation"
	"gatekeep/cmd/internal/auth/session"
)

// App is the gatekeep server runtime.
type App struct {
	cfg Config
	log Logger

	stores   *stores
	sessions *session.Service
	auth     *authapi.Handler
	registry *prometheus.Registry

	shutdownTracing func(context.Context) error
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, nil)
	}

	tokens, err := newTokenHasher(cfg, log)
	if err != nil {
		return nil, err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, stores: st}

	ok := false
	defer func() {
		if !ok {
			_ = a.close(context.Background())
		}
	}()

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	inFlight := promauto.With(a.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "gatekeep",
		Name:      "password_hashes_in_flight",
		Help:      "Password hash or verify operations currently running.",
	})

	tp, shutdown, err := newTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.shutdownTracing = shutdown

	hasher, err := identity.NewHasher(cfg.PasswordConfig(), cfg.HashConcurrency, identity.WithInFlightGauge(inFlight))
	if err != nil {
		return nil, err
	}
	accounts, err := account.NewService(st.identities, hasher,
		account.WithLogger(log),
		account.WithTracerProvider(tp),
	)
	if err != nil {
		return nil, err
	}

	a.sessions, err = session.NewService(cfg.SessionConfig(), st.sessions, tokens, log)
	if err != nil {
		return nil, err
	}

	var providers []federation.Provider
	if cfg.GoogleEnabled() {
		google, err := federation.NewOIDCProvider(ctx, federation.OIDCConfig{
			Name:         "google",
			Issuer:       cfg.GoogleIssuer,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, google)
	}
	reg, err := federation.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}

	a.auth, err = authapi.NewHandler(log, cfg.AuthConfig(), accounts, a.sessions,
		authapi.WithProviders(reg),
		authapi.WithMetrics(authapi.NewMetrics(a.registry)),
	)
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return newRouter(a) }

// Run starts the HTTP server and the session sweeper, and blocks until ctx is
// canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    1 << 20,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sessions.RunSweeper(sweepCtx, a.cfg.SessionSweepInterval)

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "store", a.stores.driver, "redis_sessions", a.cfg.RedisURL != "")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case runErr = <-errCh:
		a.log.Error("server.fail", "err", runErr)
	}
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		runErr = errors.Join(runErr, err)
	}
	if err := a.close(shutdownCtx); err != nil {
		a.log.Error("app.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return runErr
}

// Close releases stores and flushes telemetry. Run calls it on shutdown.
func (a *App) Close(ctx context.Context) error { return a.close(ctx) }

func (a *App) close(ctx context.Context) error {
	var errs []error
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
		a.shutdownTracing = nil
	}
	if a.stores != nil {
		errs = append(errs, a.stores.Close())
		a.stores = nil
	}
	return errors.Join(errs...)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
