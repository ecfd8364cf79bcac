package app

import (
	"errors"
	"log/slog"

	"gatekeep/cmd/security/token"
)

// newTokenHasher builds the session token hasher and enforces the HMAC policy.
// Failing at startup is preferred to silently falling back to plain SHA-256.
func newTokenHasher(cfg Config, log *slog.Logger) (token.Hasher, error) {
	h, err := token.NewHasher(cfg.TokenHMACKey)
	if err != nil {
		if errors.Is(err, token.ErrHMACKeyTooShort) {
			return token.Hasher{}, errors.New("security policy: GATEKEEP_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		}
		return token.Hasher{}, err
	}
	if cfg.RequireTokenHMAC {
		if err := h.RequireHMAC(); err != nil {
			return token.Hasher{}, errors.New("security policy: GATEKEEP_REQUIRE_TOKEN_HMAC=true but GATEKEEP_TOKEN_HMAC_KEY is missing")
		}
	}
	if !h.HMACEnabled() {
		log.Warn("security.token_hmac.disabled", "fallback", "sha256")
	}
	if !cfg.CookieSecure {
		log.Warn("security.cookie_secure.disabled")
	}
	return h, nil
}
