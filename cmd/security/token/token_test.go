package token

import (
	"errors"
	"strings"
	"testing"
)

func TestNewOpaque_UniqueAndURLSafe(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		tok, err := NewOpaque(0)
		if err != nil {
			t.Fatalf("NewOpaque: %v", err)
		}
		if len(tok) != 43 { // 32 bytes base64url without padding
			t.Fatalf("unexpected length %d", len(tok))
		}
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token is not url-safe: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token")
		}
		seen[tok] = true
	}
}

func TestHasher_Modes(t *testing.T) {
	plain, err := NewHasher("")
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	if plain.HMACEnabled() {
		t.Fatalf("expected sha256 mode")
	}
	if !errors.Is(plain.RequireHMAC(), ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing")
	}
	if got := plain.Digest("abc"); got != HashSHA256Hex("abc") {
		t.Fatalf("sha256 digest mismatch")
	}

	key := strings.Repeat("k", MinHMACKeyBytes)
	keyed, err := NewHasher(key)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	d := keyed.Digest("abc")
	if len(d) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(d))
	}
	if d == plain.Digest("abc") {
		t.Fatalf("hmac digest must differ from sha256")
	}
	if d != HashHMACSHA256Hex("abc", []byte(key)) {
		t.Fatalf("hmac digest mismatch")
	}
}

func TestNewHasher_ShortKey(t *testing.T) {
	if _, err := NewHasher("short"); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
}

func TestEqualConstantTime(t *testing.T) {
	if !EqualConstantTime("abc", "abc") {
		t.Fatalf("expected equal")
	}
	if EqualConstantTime("abc", "abd") || EqualConstantTime("abc", "ab") {
		t.Fatalf("expected not equal")
	}
}
