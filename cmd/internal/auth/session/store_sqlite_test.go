package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gatekeep/cmd/internal/db"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sessions.db")
	if err := db.Migrate("sqlite://"+path, db.Up); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	s, err := NewSQLiteStore(sqlDB)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return s
}

func TestService_Lifecycle_SQLite(t *testing.T) {
	exerciseLifecycle(t, newTestSQLiteStore(t))
}

func TestService_Expiry_SQLite(t *testing.T) {
	exerciseExpiry(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_DeleteExpired(t *testing.T) {
	store := newTestSQLiteStore(t)
	s := newTestService(t, store)
	ctx := context.Background()

	if _, err := s.Establish(ctx, testNow, testIdentity()); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	live, err := s.Establish(ctx, testNow.Add(24*time.Hour), testIdentity())
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	n, err := s.Sweep(ctx, testNow.Add(48*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 swept, got %d %v", n, err)
	}
	if _, err := s.Resolve(ctx, testNow.Add(48*time.Hour), live.Token); err != nil {
		t.Fatalf("live session should survive sweep: %v", err)
	}
}
