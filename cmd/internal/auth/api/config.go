package authapi

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config controls auth HTTP behaviour and cookie defaults.
type Config struct {
	CookieName   string
	CookieDomain string
	CookieSecure bool

	// StateCookieName holds the in-flight federation challenge.
	StateCookieName string
	StateTTL        time.Duration

	SignInPath string
	HomePath   string

	MaxBodyBytes int64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:      "gatekeep_session",
		CookieSecure:    true,
		StateCookieName: "gatekeep_oauth",
		StateTTL:        10 * time.Minute,
		SignInPath:      "/",
		HomePath:        "/home",
		MaxBodyBytes:    1 << 20, // 1 MiB
	}
}

// Validate checks c and fills zero values from DefaultConfig.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if strings.TrimSpace(c.CookieName) == "" {
		c.CookieName = def.CookieName
	}
	if strings.TrimSpace(c.StateCookieName) == "" {
		c.StateCookieName = def.StateCookieName
	}
	if c.StateCookieName == c.CookieName {
		return errors.New("authapi: state cookie name must differ from session cookie name")
	}
	if c.StateTTL <= 0 {
		c.StateTTL = def.StateTTL
	}
	if c.SignInPath == "" {
		c.SignInPath = def.SignInPath
	}
	if c.HomePath == "" {
		c.HomePath = def.HomePath
	}
	if !strings.HasPrefix(c.SignInPath, "/") || !strings.HasPrefix(c.HomePath, "/") {
		return errors.New("authapi: sign-in and home paths must be absolute paths")
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	return nil
}

func (c Config) sameSite() http.SameSite { return http.SameSiteLaxMode }
