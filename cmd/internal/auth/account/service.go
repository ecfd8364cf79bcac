package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gatekeep/cmd/identity"
	"gatekeep/cmd/security/password"
)

const (
	tracerName          = "gatekeep/account"
	defaultWriteTimeout = 10 * time.Second
)

// Service authenticates, registers and federates identities against one Store.
type Service struct {
	store        identity.Store
	hasher       *identity.Hasher
	log          *slog.Logger
	tracer       trace.Tracer
	writeTimeout time.Duration

	// dummyDigest is verified against when no usable digest exists, so unknown and
	// federated usernames cost the same as a wrong password.
	dummyDigest string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracerProvider sets the tracer provider (default: the otel global provider).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithWriteTimeout bounds store writes, which run detached from request cancellation.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewService constructs a Service.
func NewService(store identity.Store, hasher *identity.Hasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("account: nil store")
	}
	if hasher == nil {
		return nil, errors.New("account: nil hasher")
	}

	s := &Service{
		store:        store,
		hasher:       hasher,
		log:          slog.Default(),
		tracer:       otel.Tracer(tracerName),
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	dummy, err := newDummyDigest(hasher.Config())
	if err != nil {
		return nil, fmt.Errorf("account: dummy digest: %w", err)
	}
	s.dummyDigest = dummy
	return s, nil
}

// newDummyDigest hashes a random secret with the live parameters but without policy limits.
func newDummyDigest(cfg password.Config) (string, error) {
	b := make([]byte, 18)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	cfg.Policy = password.Policy{MinLength: 1, MaxLength: 72}
	return cfg.Hash(base64.RawURLEncoding.EncodeToString(b))
}

// writeContext detaches a store write from request cancellation: once issued, a
// write is allowed to finish even if the client has gone away.
func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("gatekeep.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}
