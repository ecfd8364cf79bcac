package authapi

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts auth events by action and outcome.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers the auth counters on reg. A nil reg yields unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeep",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events by action and outcome.",
		}, []string{"action", "outcome"}),
	}
}

func (m *Metrics) inc(action, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(action, outcome).Inc()
}

// audit records an auth event as a structured log line and a counter increment.
// Never pass passwords or tokens in attrs.
func (h *Handler) audit(ctx context.Context, action, outcome string, attrs ...slog.Attr) {
	h.metrics.inc(action, outcome)

	level := slog.LevelInfo
	if outcome != "success" {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("outcome", outcome))
	h.log.LogAttrs(ctx, level, action, attrs...)
}

func (h *Handler) auditLogin(ctx context.Context, outcome, identityID string) {
	h.audit(ctx, "auth.login", outcome, slog.String("identity_id", identityID))
}

func (h *Handler) auditRegister(ctx context.Context, outcome, identityID string) {
	h.audit(ctx, "auth.register", outcome, slog.String("identity_id", identityID))
}

func (h *Handler) auditFederation(ctx context.Context, provider, outcome, identityID string) {
	h.audit(ctx, "auth.federation", outcome,
		slog.String("provider", provider),
		slog.String("identity_id", identityID),
	)
}

func (h *Handler) auditLogout(ctx context.Context, outcome string) {
	h.audit(ctx, "auth.logout", outcome)
}
