package password

import (
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm names the digest scheme used for new hashes.
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
// Verification accepts both schemes regardless of Algorithm.
type Config struct {
	Algorithm  Algorithm
	Params     Argon2idParams
	BcryptCost int
	Policy     Policy
}

// DefaultConfig returns a strong baseline for interactive logins.
func DefaultConfig() Config {
	// CPU-aware parallelism, clamped to [1..4] to keep resource usage predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm: AlgorithmArgon2id,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // reasonable default for interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost: 12,
		Policy: Policy{
			MinLength:      6,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// Check validates the configuration ranges.
func (c Config) Check() error {
	switch c.Algorithm {
	case AlgorithmArgon2id, AlgorithmBcrypt:
	default:
		return fmt.Errorf("password: unknown algorithm %q", c.Algorithm)
	}

	p := c.Params
	switch {
	case p.MemoryKiB < 8*1024 || p.MemoryKiB > 1024*1024:
		return fmt.Errorf("password: argon2 memory_kib out of range [%d..%d]", 8*1024, 1024*1024)
	case p.Iterations < 1 || p.Iterations > 20:
		return fmt.Errorf("password: argon2 iterations out of range [1..20]")
	case p.Parallelism < 1 || p.Parallelism > 64:
		return fmt.Errorf("password: argon2 parallelism out of range [1..64]")
	case p.SaltLength < 8 || p.SaltLength > 64:
		return fmt.Errorf("password: argon2 salt_len out of range [8..64]")
	case p.KeyLength < 16 || p.KeyLength > 64:
		return fmt.Errorf("password: argon2 key_len out of range [16..64]")
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > maxBcryptCost {
		return fmt.Errorf("password: bcrypt cost out of range [%d..%d]", bcrypt.MinCost, maxBcryptCost)
	}

	if c.Policy.MinLength < 1 || c.Policy.MaxLength < 1 {
		return fmt.Errorf("password: policy lengths must be positive")
	}
	if c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			c.Policy.MinLength,
			c.Policy.MaxLength,
		)
	}
	// bcrypt rejects input beyond 72 bytes with ErrPasswordTooLong.
	if c.Algorithm == AlgorithmBcrypt && c.Policy.MaxLength > maxBcryptBytes {
		return fmt.Errorf("password: bcrypt requires max_len <= %d", maxBcryptBytes)
	}
	return nil
}
