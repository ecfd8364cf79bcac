package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatekeep/cmd/internal/auth/federation"
)

func TestChallengeCookieRoundTrip(t *testing.T) {
	c, err := federation.NewChallenge()
	if err != nil {
		t.Fatalf("NewChallenge: %v", err)
	}
	provider, got, err := decodeChallenge(encodeChallenge("google", c))
	if err != nil {
		t.Fatalf("decodeChallenge: %v", err)
	}
	if provider != "google" || got != c {
		t.Fatalf("round trip = %q %+v, want google %+v", provider, got, c)
	}

	for _, bad := range []string{"", "google", "google.a.b", "google..b.c", "a.b.c.d.e"} {
		if _, _, err := decodeChallenge(bad); err == nil {
			t.Fatalf("decodeChallenge(%q) should fail", bad)
		}
	}
}

func TestSessionTokenSources(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if _, ok := h.sessionToken(req); ok {
		t.Fatalf("expected no token")
	}

	req.Header.Set("Authorization", "Bearer tok-header")
	if tok, ok := h.sessionToken(req); !ok || tok != "tok-header" {
		t.Fatalf("bearer token = %q %v", tok, ok)
	}

	req.AddCookie(&http.Cookie{Name: "gatekeep_session", Value: "tok-cookie"})
	if tok, _ := h.sessionToken(req); tok != "tok-cookie" {
		t.Fatalf("cookie should win over header, got %q", tok)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/me", nil)
	req2.Header.Set("Authorization", "Basic abc")
	if _, ok := h.sessionToken(req2); ok {
		t.Fatalf("basic auth is not a session token")
	}
}

func TestSetSessionCookieAttributes(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}
	rr := httptest.NewRecorder()
	exp := time.Now().Add(time.Hour)
	h.setSessionCookie(rr, "tok", exp)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d", len(cookies))
	}
	c := cookies[0]
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Fatalf("cookie attributes = %+v", c)
	}
}

func TestWantsJSON(t *testing.T) {
	cases := []struct {
		ct, accept string
		want       bool
	}{
		{"application/json; charset=utf-8", "", true},
		{"", "application/json", true},
		{"application/x-www-form-urlencoded", "text/html", false},
		{"", "", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("Content-Type", tc.ct)
		req.Header.Set("Accept", tc.accept)
		if got := wantsJSON(req); got != tc.want {
			t.Fatalf("wantsJSON(%q,%q) = %v", tc.ct, tc.accept, got)
		}
	}
}

func TestSecureStringEqual(t *testing.T) {
	if !secureStringEqual("abc", "abc") || secureStringEqual("abc", "abd") || secureStringEqual("", "") {
		t.Fatalf("secureStringEqual misbehaves")
	}
}
