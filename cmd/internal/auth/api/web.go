package authapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"gatekeep/cmd/internal/auth/federation"
)

const bearerPrefix = "Bearer "

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.sameSite(),
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.sameSite(),
	})
}

// sessionToken returns the presented session token: the cookie first, then a bearer header.
func (h *Handler) sessionToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, true
		}
	}
	if authz := r.Header.Get("Authorization"); len(authz) > len(bearerPrefix) && strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
		if v := strings.TrimSpace(authz[len(bearerPrefix):]); v != "" {
			return v, true
		}
	}
	return "", false
}

// The state cookie carries provider, state, verifier and nonce; all but the
// provider are base64url so "." is a safe separator.
func encodeChallenge(provider string, c federation.Challenge) string {
	return strings.Join([]string{provider, c.State, c.Verifier, c.Nonce}, ".")
}

var errBadStateCookie = errors.New("malformed state cookie")

func decodeChallenge(v string) (string, federation.Challenge, error) {
	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return "", federation.Challenge{}, errBadStateCookie
	}
	for _, p := range parts {
		if p == "" {
			return "", federation.Challenge{}, errBadStateCookie
		}
	}
	return parts[0], federation.Challenge{State: parts[1], Verifier: parts[2], Nonce: parts[3]}, nil
}

func (h *Handler) setStateCookie(w http.ResponseWriter, provider string, c federation.Challenge, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.StateCookieName,
		Value:    encodeChallenge(provider, c),
		Path:     "/auth/",
		Domain:   h.cfg.CookieDomain,
		Expires:  now.Add(h.cfg.StateTTL),
		MaxAge:   int(h.cfg.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		// Lax so the cookie survives the top-level redirect back from the provider.
		SameSite: http.SameSiteLaxMode,
	})
}

func secureStringEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
