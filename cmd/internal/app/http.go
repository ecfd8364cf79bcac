package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(a *App) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		WithRequestLogging(a.log),
		middleware.Recoverer,
		WithSecurityHeaders,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	a.auth.Routes(r)
	return r
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.stores == nil {
		http.Error(w, "stopping", http.StatusServiceUnavailable)
		return
	}
	for name, p := range a.stores.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			a.log.Info("readyz.not_ready", "backend", name, "err", err)
			http.Error(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
