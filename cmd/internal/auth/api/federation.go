package authapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatekeep/cmd/internal/auth/account"
	"gatekeep/cmd/internal/auth/federation"
)

func (h *Handler) handleFederationStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, err := h.providers.Get(name)
	if err != nil {
		h.respondError(w, r, http.StatusNotFound, "unknown_provider", "unknown provider")
		return
	}

	c, err := federation.NewChallenge()
	if err != nil {
		h.log.ErrorContext(r.Context(), "auth.federation.challenge.error", "err", err)
		h.serverError(w, r)
		return
	}
	h.setStateCookie(w, name, c, h.now())
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, p.AuthCodeURL(c), http.StatusFound)
}

var (
	errStateMissing   = errors.New("state cookie missing")
	errStateMismatch  = errors.New("state mismatch")
	errProviderDenied = errors.New("provider returned an error")
)

func (h *Handler) handleFederationCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "provider")
	p, err := h.providers.Get(name)
	if err != nil {
		h.respondError(w, r, http.StatusNotFound, "unknown_provider", "unknown provider")
		return
	}

	// The challenge is single-use whatever the outcome.
	h.expireCookie(w, h.cfg.StateCookieName, "/auth/")

	fail := func(kind string, err error) {
		h.log.WarnContext(ctx, "auth.federation.fail", "provider", name, "kind", kind, "err", err)
		h.auditFederation(ctx, name, kind, "")
		h.unauthenticated(w, r, "federation_failed", "sign-in with provider failed")
	}

	c, err := h.challengeFromCookie(r, name)
	if err != nil {
		fail("state_invalid", err)
		return
	}
	q := r.URL.Query()
	if !secureStringEqual(q.Get("state"), c.State) {
		fail("state_invalid", errStateMismatch)
		return
	}
	if q.Get("error") != "" {
		fail("provider_denied", errProviderDenied)
		return
	}

	prof, err := p.Exchange(ctx, q.Get("code"), c)
	if err != nil {
		fail("provider_error", account.NewProviderError(err))
		return
	}

	ident, err := h.accounts.ResolveOrCreate(ctx, prof)
	if err != nil {
		kind := "store_error"
		if errors.Is(err, account.ErrProvider) {
			kind = "profile_invalid"
		}
		fail(kind, err)
		return
	}

	if _, ok := h.establish(w, r, ident); !ok {
		return
	}
	h.auditFederation(ctx, name, "success", ident.ID)
	http.Redirect(w, r, h.cfg.HomePath, http.StatusSeeOther)
}

func (h *Handler) challengeFromCookie(r *http.Request, provider string) (federation.Challenge, error) {
	ck, err := r.Cookie(h.cfg.StateCookieName)
	if err != nil || ck.Value == "" {
		return federation.Challenge{}, errStateMissing
	}
	bound, c, err := decodeChallenge(ck.Value)
	if err != nil {
		return federation.Challenge{}, err
	}
	if bound != provider {
		return federation.Challenge{}, errStateMismatch
	}
	return c, nil
}
