package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gatekeep/cmd/security/password"
)

// fastHasher keeps argon2 cheap for unit tests.
func fastHasher(t *testing.T) *Hasher {
	t.Helper()

	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	h, err := NewHasher(cfg, 2)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func localIdentity(username string) NewIdentity {
	return NewIdentity{
		Username:         username,
		FirstName:        "Bob",
		LastName:         "Lee",
		CredentialKind:   CredentialLocalPassword,
		CredentialDigest: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaA",
	}
}

// exerciseStore runs the Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.FindByUsername(ctx, "nobody@x.com"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	avatar := "https://img.example.com/a.png"
	fed := NewIdentity{
		Username:         "Ann@X.com",
		FirstName:        "Ann",
		CredentialKind:   CredentialFederated,
		CredentialDigest: FederatedSentinel,
		AvatarURL:        &avatar,
	}
	created, err := s.InsertIdentity(ctx, fed)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(created.ID) != 26 {
		t.Fatalf("expected ulid id, got %q", created.ID)
	}

	got, err := s.FindByUsername(ctx, "  ann@x.COM ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != created.ID || got.Username != "Ann@X.com" || got.CredentialKind != CredentialFederated {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if got.AvatarURL == nil || *got.AvatarURL != avatar {
		t.Fatalf("avatar not round-tripped: %v", got.AvatarURL)
	}
	if got.HasLocalPassword() {
		t.Fatalf("federated identity must not have a local password")
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", got.CreatedAt, created.CreatedAt)
	}

	// Same username differing only in case conflicts.
	_, err = s.InsertIdentity(ctx, localIdentity("ANN@x.com"))
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	if _, err := s.InsertIdentity(ctx, NewIdentity{Username: "x@x.com", CredentialKind: CredentialFederated, CredentialDigest: "nope"}); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

// exerciseConcurrentInsert checks exactly one of n racing inserts wins.
func exerciseConcurrentInsert(t *testing.T, s Store, n int) {
	t.Helper()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertIdentity(ctx, localIdentity("race@x.com"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case IsConflict(err):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", n-1, wins, conflicts)
	}
}
