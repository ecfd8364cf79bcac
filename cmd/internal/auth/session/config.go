package session

import (
	"fmt"
	"time"
)

// Config controls session lifetime and token entropy.
type Config struct {
	// TTL is the fixed session window measured from Establish.
	TTL time.Duration

	// TokenBytes is the number of random bytes in a session token.
	TokenBytes int

	// WriteTimeout bounds store writes that run detached from request cancellation.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		TTL:          7 * 24 * time.Hour,
		TokenBytes:   32,
		WriteTimeout: 5 * time.Second,
	}
}

// Validate returns ErrConfig if cfg is unusable.
func (c Config) Validate() error {
	if c.TTL < time.Minute || c.TTL > 90*24*time.Hour {
		return fmt.Errorf("%w: ttl must be within [1m..90d]", ErrConfig)
	}
	if c.TokenBytes < 16 || c.TokenBytes > 128 {
		return fmt.Errorf("%w: token bytes must be within [16..128]", ErrConfig)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be positive", ErrConfig)
	}
	return nil
}
