package identity

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"gatekeep/cmd/security/password"
)

// Hasher is the credential hasher shared by registration and the local login path.
//
// Each argon2id call allocates Params.MemoryKiB, so the number of concurrent
// hash/verify computations is bounded by a weighted semaphore. Waiting for a slot
// honours ctx; a computation that has started always runs to completion.
type Hasher struct {
	cfg      password.Config
	sem      *semaphore.Weighted
	inFlight prometheus.Gauge
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithInFlightGauge reports the number of running hash computations.
func WithInFlightGauge(g prometheus.Gauge) HasherOption {
	return func(h *Hasher) { h.inFlight = g }
}

// NewHasher validates cfg and returns a Hasher allowing maxConcurrent computations
// (runtime.NumCPU() when maxConcurrent <= 0).
func NewHasher(cfg password.Config, maxConcurrent int, opts ...HasherOption) (*Hasher, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.NumCPU()
	}
	h := &Hasher{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Config returns the password configuration used by h.
func (h *Hasher) Config() password.Config { return h.cfg }

// Hash returns a new digest for plain.
// Policy violations are returned as password.ErrPasswordTooShort / TooLong / Weak;
// any other error means hashing itself failed.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.cfg.Validate(plain); err != nil {
		return "", err
	}
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	digest, err := h.cfg.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("identity.Hasher.Hash: %w", err)
	}
	return digest, nil
}

// Verify reports whether plain matches digest. It never returns an error:
// malformed digests (including FederatedSentinel) and cancellation while
// waiting for a slot all yield false.
func (h *Hasher) Verify(ctx context.Context, plain, digest string) bool {
	if err := h.acquire(ctx); err != nil {
		return false
	}
	defer h.release()

	ok, err := h.cfg.Verify(digest, plain)
	if err != nil {
		return false
	}
	return ok
}

// IsPolicyError reports whether err is a password policy violation from Hash.
func IsPolicyError(err error) bool {
	return errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword)
}

func (h *Hasher) acquire(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if h.inFlight != nil {
		h.inFlight.Inc()
	}
	return nil
}

func (h *Hasher) release() {
	if h.inFlight != nil {
		h.inFlight.Dec()
	}
	h.sem.Release(1)
}
