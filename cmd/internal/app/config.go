package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	authapi "gatekeep/cmd/internal/auth/api"
	"gatekeep/cmd/internal/auth/session"
	"gatekeep/cmd/internal/db"
	"gatekeep/cmd/security/password"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "GATEKEEP"

// Config contains all runtime configuration. Each field maps to GATEKEEP_<KEY>
// in the environment or <KEY> in the optional .env file.
type Config struct {
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	ReadHeaderTimeout time.Duration `mapstructure:"HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DatabaseURL is postgres://..., sqlite://<path>, or empty for in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	// RedisURL, when set, moves sessions to Redis.
	RedisURL    string `mapstructure:"REDIS_URL"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`

	SessionTTL           time.Duration `mapstructure:"SESSION_TTL"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	TokenHMACKey         string        `mapstructure:"TOKEN_HMAC_KEY"`
	RequireTokenHMAC     bool          `mapstructure:"REQUIRE_TOKEN_HMAC"`

	CookieName   string `mapstructure:"COOKIE_NAME"`
	CookieSecure bool   `mapstructure:"COOKIE_SECURE"`
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	SignInPath   string `mapstructure:"SIGN_IN_PATH"`
	HomePath     string `mapstructure:"HOME_PATH"`
	MaxBodyBytes int64  `mapstructure:"MAX_BODY_BYTES"`

	PasswordAlgorithm string `mapstructure:"PASSWORD_ALGORITHM"`
	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`
	BcryptCost        int    `mapstructure:"BCRYPT_COST"`
	PasswordMinLen    int    `mapstructure:"PASSWORD_MIN_LEN"`
	PasswordMaxLen    int    `mapstructure:"PASSWORD_MAX_LEN"`
	HashConcurrency   int    `mapstructure:"HASH_CONCURRENCY"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
	GoogleIssuer       string `mapstructure:"GOOGLE_ISSUER"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	ServiceName  string `mapstructure:"SERVICE_NAME"`
}

func setDefaults(v *viper.Viper) {
	pw := password.DefaultConfig()
	auth := authapi.DefaultConfig()

	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	v.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("AUTO_MIGRATE", false)

	v.SetDefault("SESSION_TTL", session.DefaultConfig().TTL)
	v.SetDefault("SESSION_SWEEP_INTERVAL", 15*time.Minute)
	v.SetDefault("TOKEN_HMAC_KEY", "")
	v.SetDefault("REQUIRE_TOKEN_HMAC", false)

	v.SetDefault("COOKIE_NAME", auth.CookieName)
	v.SetDefault("COOKIE_SECURE", auth.CookieSecure)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("SIGN_IN_PATH", auth.SignInPath)
	v.SetDefault("HOME_PATH", auth.HomePath)
	v.SetDefault("MAX_BODY_BYTES", auth.MaxBodyBytes)

	v.SetDefault("PASSWORD_ALGORITHM", string(pw.Algorithm))
	v.SetDefault("ARGON2_MEMORY_KIB", pw.Params.MemoryKiB)
	v.SetDefault("ARGON2_ITERATIONS", pw.Params.Iterations)
	v.SetDefault("ARGON2_PARALLELISM", pw.Params.Parallelism)
	v.SetDefault("BCRYPT_COST", pw.BcryptCost)
	v.SetDefault("PASSWORD_MIN_LEN", pw.Policy.MinLength)
	v.SetDefault("PASSWORD_MAX_LEN", pw.Policy.MaxLength)
	v.SetDefault("HASH_CONCURRENCY", 4)

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("GOOGLE_ISSUER", "https://accounts.google.com")

	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("SERVICE_NAME", "gatekeep")
}

// LoadConfig reads envFile (if present, keys without prefix), then GATEKEEP_* env vars,
// which win. A missing envFile is not an error.
func LoadConfig(envFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Component-level checks run again in
// their constructors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json, text or pretty, got %q", c.LogFormat)
	}
	if _, _, err := db.ParseURL(c.DatabaseURL); err != nil {
		return fmt.Errorf("config: DATABASE_URL: %w", err)
	}
	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		return errors.New("config: DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if err := c.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.PasswordConfig().Check(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.HashConcurrency <= 0 {
		return errors.New("config: HASH_CONCURRENCY must be positive")
	}
	ac := c.AuthConfig()
	if err := ac.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.GoogleEnabled() && (c.GoogleClientSecret == "" || c.GoogleRedirectURL == "") {
		return errors.New("config: GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required with GOOGLE_CLIENT_ID")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c Config) GoogleEnabled() bool { return strings.TrimSpace(c.GoogleClientID) != "" }

// PasswordConfig builds the hashing configuration.
func (c Config) PasswordConfig() password.Config {
	pc := password.DefaultConfig()
	pc.Algorithm = password.Algorithm(strings.ToLower(c.PasswordAlgorithm))
	pc.Params.MemoryKiB = c.Argon2MemoryKiB
	pc.Params.Iterations = c.Argon2Iterations
	pc.Params.Parallelism = c.Argon2Parallelism
	pc.BcryptCost = c.BcryptCost
	pc.Policy.MinLength = c.PasswordMinLen
	pc.Policy.MaxLength = c.PasswordMaxLen
	return pc
}

// SessionConfig builds the session configuration.
func (c Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.TTL = c.SessionTTL
	return sc
}

// AuthConfig builds the HTTP auth configuration.
func (c Config) AuthConfig() authapi.Config {
	ac := authapi.DefaultConfig()
	ac.CookieName = c.CookieName
	ac.CookieSecure = c.CookieSecure
	ac.CookieDomain = c.CookieDomain
	ac.SignInPath = c.SignInPath
	ac.HomePath = c.HomePath
	ac.MaxBodyBytes = c.MaxBodyBytes
	return ac
}

func isNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
