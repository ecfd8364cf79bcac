package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gatekeep/cmd/security/password"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := fastHasher(t)
	ctx := context.Background()

	digest, err := h.Hash(ctx, "secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify(ctx, "secret1", digest) {
		t.Fatalf("expected match")
	}
	if h.Verify(ctx, "secret2", digest) {
		t.Fatalf("expected mismatch")
	}
}

func TestHasher_SentinelAlwaysFails(t *testing.T) {
	h := fastHasher(t)
	ctx := context.Background()

	for _, attempt := range []string{"", "secret1", FederatedSentinel, "google-auth"} {
		if h.Verify(ctx, attempt, FederatedSentinel) {
			t.Fatalf("sentinel verified for %q", attempt)
		}
	}
	// Rows written by the previous system used this literal marker.
	if h.Verify(ctx, "google-auth", "google-auth") {
		t.Fatalf("legacy marker verified")
	}
}

func TestHasher_PolicyErrors(t *testing.T) {
	h := fastHasher(t)

	_, err := h.Hash(context.Background(), "abc")
	if !errors.Is(err, password.ErrPasswordTooShort) || !IsPolicyError(err) {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestHasher_CanceledWhileWaiting(t *testing.T) {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	h, err := NewHasher(cfg, 1)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	// Occupy the only slot.
	if err := h.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer h.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Hash(ctx, "secret1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if h.Verify(ctx, "secret1", "whatever") {
		t.Fatalf("expected false on cancellation")
	}
}

func TestHasher_InFlightGauge(t *testing.T) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_hash_in_flight"})
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	h, err := NewHasher(cfg, 4, WithInFlightGauge(g))
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.Hash(context.Background(), "secret1"); err != nil {
				t.Errorf("Hash: %v", err)
			}
		}()
	}
	wg.Wait()

	if v := testutil.ToFloat64(g); v != 0 {
		t.Fatalf("expected gauge back at 0, got %v", v)
	}
}

func TestNewHasher_RejectsBadConfig(t *testing.T) {
	cfg := password.DefaultConfig()
	cfg.Params.Iterations = 0
	if _, err := NewHasher(cfg, 1); err == nil {
		t.Fatalf("expected error")
	}
}
