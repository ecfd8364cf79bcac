package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gatekeep/cmd/identity"
	"gatekeep/cmd/internal/auth/account"
	"gatekeep/cmd/internal/auth/federation"
	"gatekeep/cmd/internal/auth/session"
)

// Handler wires HTTP auth endpoints to the account and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts  *account.Service
	sessions  *session.Service
	providers *federation.Registry
	metrics   *Metrics

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithProviders enables federated sign-in for the registered providers.
func WithProviders(reg *federation.Registry) HandlerOption {
	return func(h *Handler) {
		if h == nil || reg == nil {
			return
		}
		h.providers = reg
	}
}

// WithMetrics records auth events on m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, accounts *account.Service, sessions *session.Service, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if accounts == nil || sessions == nil {
		return nil, errors.New("authapi: account and session services are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Routes mounts the auth endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)

	r.Get("/auth/{provider}", h.handleFederationStart)
	r.Get("/auth/{provider}/callback", h.handleFederationCallback)
	// Legacy callback path, still registered with existing OAuth clients.
	r.Get("/auth/{provider}/home", h.handleFederationCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireIdentity)
		r.Get("/home", h.handleHome)
		r.Get("/me", h.handleMe)
	})

	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if isJSONBody(r) {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	} else {
		field, err := decodeForm(w, r, h.cfg.MaxBodyBytes)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req = credentialsRequest{Username: field("username"), Email: field("email"), Password: field("password")}
	}
	username := firstNonEmpty(req.Username, req.Email)

	ctx := r.Context()
	ident, err := h.accounts.Authenticate(ctx, username, req.Password)
	if err != nil {
		if account.IsInvalidCredentials(err) {
			// Not-found and bad-password share one outcome; the reason is only logged at debug.
			h.log.DebugContext(ctx, "auth.login.fail", "reason", err.Error())
			h.auditLogin(ctx, "invalid_credentials", "")
			h.unauthenticated(w, r, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.ErrorContext(ctx, "auth.login.error", "err", err)
		h.auditLogin(ctx, "error", "")
		h.serverError(w, r)
		return
	}

	issued, ok := h.establish(w, r, ident)
	if !ok {
		return
	}
	h.auditLogin(ctx, "success", ident.ID)
	h.signedIn(w, r, http.StatusOK, issued)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if isJSONBody(r) {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	} else {
		field, err := decodeForm(w, r, h.cfg.MaxBodyBytes)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req = registerRequest{
			Username:  field("username"),
			Email:     field("email"),
			FirstName: field("firstName", "firstname"),
			LastName:  field("lastName", "lastname"),
			Password:  field("password"),
		}
	}

	ctx := r.Context()
	ident, err := h.accounts.Register(ctx, account.RegisterInput{
		Username:  firstNonEmpty(req.Username, req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case account.IsAlreadyExists(err):
			h.auditRegister(ctx, "already_exists", "")
			h.respondError(w, r, http.StatusConflict, "account_exists", "User already exists")
		case errors.Is(err, account.ErrInvalidInput):
			h.auditRegister(ctx, "invalid_input", "")
			h.respondError(w, r, http.StatusBadRequest, "invalid_request", invalidInputMessage(err))
		default:
			h.log.ErrorContext(ctx, "auth.register.error", "err", err)
			h.auditRegister(ctx, "error", "")
			h.serverError(w, r)
		}
		return
	}

	issued, ok := h.establish(w, r, ident)
	if !ok {
		return
	}
	h.auditRegister(ctx, "success", ident.ID)
	h.signedIn(w, r, http.StatusCreated, issued)
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	snap, _ := SnapshotFromContext(r.Context())
	writeJSON(w, http.StatusOK, toHomeView(snap))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	snap, _ := SnapshotFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(snap)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if tok, ok := h.sessionToken(r); ok {
		if err := h.sessions.Revoke(ctx, tok); err != nil {
			h.log.ErrorContext(ctx, "auth.logout.error", "err", err)
			h.auditLogout(ctx, "error")
			h.expireCookie(w, h.cfg.CookieName, "/")
			h.serverError(w, r)
			return
		}
	}
	h.expireCookie(w, h.cfg.CookieName, "/")
	h.auditLogout(ctx, "success")

	if wantsJSON(r) {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.cfg.SignInPath, http.StatusSeeOther)
}

// ---- gate ----

type snapshotKey struct{}

// SnapshotFromContext returns the session snapshot attached by RequireIdentity.
func SnapshotFromContext(ctx context.Context) (session.Snapshot, bool) {
	s, ok := ctx.Value(snapshotKey{}).(session.Snapshot)
	return s, ok
}

// RequireIdentity admits only requests carrying a valid session.
func (h *Handler) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tok, ok := h.sessionToken(r)
		if !ok {
			h.unauthenticated(w, r, "unauthenticated", "sign in required")
			return
		}
		snap, err := h.sessions.Resolve(ctx, h.now(), tok)
		if err != nil {
			if session.IsUnauthenticated(err) {
				h.expireCookie(w, h.cfg.CookieName, "/")
				h.unauthenticated(w, r, "unauthenticated", "sign in required")
				return
			}
			h.log.ErrorContext(ctx, "auth.gate.error", "err", err)
			h.serverError(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, snapshotKey{}, snap)))
	})
}

// ---- shared responses ----

// establish opens a session for ident, sets the cookie and revokes the token
// the client presented, if any.
func (h *Handler) establish(w http.ResponseWriter, r *http.Request, ident identity.Identity) (session.Issued, bool) {
	ctx := r.Context()
	issued, err := h.sessions.Establish(ctx, h.now(), ident)
	if err != nil {
		h.log.ErrorContext(ctx, "auth.session.establish.error", "err", err)
		h.serverError(w, r)
		return session.Issued{}, false
	}
	if prev, ok := h.sessionToken(r); ok {
		if err := h.sessions.Revoke(ctx, prev); err != nil {
			h.log.WarnContext(ctx, "auth.session.revoke_previous.fail", "err", err)
		}
	}
	h.setSessionCookie(w, issued.Token, issued.ExpiresAt)
	return issued, true
}

func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request, status int, issued session.Issued) {
	if wantsJSON(r) {
		writeJSON(w, status, authResponse{
			User:    toUserResponse(issued.Snapshot),
			Session: toSessionResponse(issued),
		})
		return
	}
	http.Redirect(w, r, h.cfg.HomePath, http.StatusSeeOther)
}

// unauthenticated sends JSON clients a 401 and browsers back to sign-in.
func (h *Handler) unauthenticated(w http.ResponseWriter, r *http.Request, code, msg string) {
	if wantsJSON(r) {
		writeError(w, http.StatusUnauthorized, code, msg)
		return
	}
	http.Redirect(w, r, h.cfg.SignInPath, http.StatusSeeOther)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if wantsJSON(r) {
		writeError(w, status, code, msg)
		return
	}
	http.Error(w, msg, status)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, http.StatusInternalServerError, "server_error", "internal error")
}

// invalidInputMessage surfaces the validation message without operation prefixes.
func invalidInputMessage(err error) string {
	var op identity.OpError
	if errors.As(err, &op) && op.Msg != "" {
		return op.Msg
	}
	var rf *account.RegistrationFailure
	if errors.As(err, &rf) && rf.Err != nil {
		err = rf.Err
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
