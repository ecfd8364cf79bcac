package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// MinHMACKeyBytes is the smallest accepted HMAC key.
const MinHMACKeyBytes = 32

// DefaultTokenBytes is the entropy of a session token.
const DefaultTokenBytes = 32

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// NewOpaque returns a cryptographically random, URL-safe token (base64url, no padding).
func NewOpaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultTokenBytes
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hasher derives storage digests for opaque tokens.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. A blank key selects SHA-256 mode; a non-blank key
// shorter than MinHMACKeyBytes is rejected.
func NewHasher(key string) (Hasher, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Hasher{}, nil
	}
	if len(key) < MinHMACKeyBytes {
		return Hasher{}, ErrHMACKeyTooShort
	}
	return Hasher{key: []byte(key)}, nil
}

// RequireHMAC returns ErrHMACKeyMissing unless h is in HMAC mode.
func (h Hasher) RequireHMAC() error {
	if len(h.key) == 0 {
		return ErrHMACKeyMissing
	}
	return nil
}

// HMACEnabled reports whether h is in HMAC mode.
func (h Hasher) HMACEnabled() bool { return len(h.key) > 0 }

// Digest returns the 64-char hex storage digest for tok.
func (h Hasher) Digest(tok string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, h.key)
}

// EqualConstantTime compares two strings without early exit on the first differing byte.
func EqualConstantTime(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
