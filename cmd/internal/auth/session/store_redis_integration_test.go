package session

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"gatekeep/cmd/identity"
)

// Integration tests are opt-in and require GATEKEEP_TEST_REDIS_URL.

func mustNewTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("GATEKEEP_TEST_REDIS_URL"))
	if raw == "" {
		t.Skip("integration test skipped: GATEKEEP_TEST_REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		t.Fatalf("parse GATEKEEP_TEST_REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if os.Getenv("CI") == "" {
			t.Skipf("integration test skipped: Redis unreachable: %v", err)
		}
		t.Fatalf("ping redis: %v", err)
	}

	id, err := identity.NewULID(time.Now())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	s, err := NewRedisStore(client, "gatekeep:it:"+strings.ToLower(id)+":")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return s
}

func TestRedisStore_Lifecycle(t *testing.T) {
	store := mustNewTestRedisStore(t)
	// The store computes key TTLs from wall time; pin it to the test clock.
	store.now = func() time.Time { return testNow }
	exerciseLifecycle(t, store)
}

func TestRedisStore_KeyExpiresWithSession(t *testing.T) {
	store := mustNewTestRedisStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	rec := Record{
		ID:         "01JABCDEFGHJKMNPQRSTVWXYZ1",
		TokenHash:  strings.Repeat("a", 64),
		IdentityID: "01JABCDEFGHJKMNPQRSTVWXYZ0",
		Snapshot:   SnapshotOf(testIdentity(), now),
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ttl, err := store.client.PTTL(ctx, store.key(rec.TokenHash)).Result()
	if err != nil {
		t.Fatalf("PTTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected key ttl %v", ttl)
	}

	if err := store.Delete(ctx, rec.TokenHash); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, rec.TokenHash); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestNewRedisStore_NilClient(t *testing.T) {
	if _, err := NewRedisStore(nil, ""); err == nil {
		t.Fatalf("expected error")
	}
}
