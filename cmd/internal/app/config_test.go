package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gatekeep/cmd/security/password"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" || cfg.LogFormat != "json" {
		t.Fatalf("http/log defaults: %+v", cfg)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("SessionTTL = %v, want 7 days", cfg.SessionTTL)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("storage should default to memory")
	}
	if cfg.PasswordConfig().Algorithm != password.AlgorithmArgon2id {
		t.Fatalf("algorithm = %q", cfg.PasswordConfig().Algorithm)
	}
	if !cfg.CookieSecure || cfg.CookieName != "gatekeep_session" {
		t.Fatalf("cookie defaults: %+v", cfg)
	}
	if cfg.GoogleEnabled() {
		t.Fatalf("google must be disabled without a client id")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GATEKEEP_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("GATEKEEP_SESSION_TTL", "48h")
	t.Setenv("GATEKEEP_LOG_FORMAT", "pretty")
	t.Setenv("GATEKEEP_PASSWORD_ALGORITHM", "bcrypt")
	t.Setenv("GATEKEEP_PASSWORD_MAX_LEN", "72")
	t.Setenv("GATEKEEP_DB_MAX_CONNS", "25")
	t.Setenv("GATEKEEP_COOKIE_SECURE", "false")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9999" || cfg.SessionTTL != 48*time.Hour || cfg.LogFormat != "pretty" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PasswordConfig().Algorithm != password.AlgorithmBcrypt || cfg.DBMaxConns != 25 || cfg.CookieSecure {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HTTP_ADDR=127.0.0.1:7000\nHOME_PATH=/dashboard\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("GATEKEEP_HOME_PATH", "/welcome")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7000" {
		t.Fatalf("file value not applied: %q", cfg.HTTPAddr)
	}
	if cfg.HomePath != "/welcome" {
		t.Fatalf("env must win over file, got %q", cfg.HomePath)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"GATEKEEP_LOG_FORMAT":         "xml",
		"GATEKEEP_DATABASE_URL":       "mysql://localhost/db",
		"GATEKEEP_SESSION_TTL":        "1s",
		"GATEKEEP_PASSWORD_ALGORITHM": "md5",
		"GATEKEEP_HASH_CONCURRENCY":   "0",
		"GATEKEEP_GOOGLE_CLIENT_ID":   "id-without-secret",
		"GATEKEEP_HOME_PATH":          "https://elsewhere.example",
	}
	for key, val := range cases {
		t.Run(strings.TrimPrefix(key, "GATEKEEP_"), func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadConfig(""); err == nil {
				t.Fatalf("%s=%s should be rejected", key, val)
			}
		})
	}
}

func TestNewTokenHasher_Policy(t *testing.T) {
	log := NewLogger("error", "json", nil)

	cfg := Config{RequireTokenHMAC: true}
	if _, err := newTokenHasher(cfg, log); err == nil {
		t.Fatalf("expected error when HMAC is required but missing")
	}

	cfg.TokenHMACKey = "short"
	if _, err := newTokenHasher(cfg, log); err == nil {
		t.Fatalf("expected error for short key")
	}

	cfg.TokenHMACKey = strings.Repeat("k", 32)
	h, err := newTokenHasher(cfg, log)
	if err != nil || !h.HMACEnabled() {
		t.Fatalf("expected HMAC hasher, got %v %v", h.HMACEnabled(), err)
	}
}
