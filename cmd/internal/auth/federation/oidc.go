package federation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"gatekeep/cmd/identity"
)

// GoogleIssuer is Google's OpenID Connect issuer.
const GoogleIssuer = "https://accounts.google.com"

// OIDCConfig configures an OpenID Connect provider.
type OIDCConfig struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// HTTPClient is used for discovery, token exchange and userinfo (default http.DefaultClient).
	HTTPClient *http.Client
}

// OIDCProvider implements Provider with discovery, PKCE, id_token verification
// and a userinfo fallback for profile fields missing from the id_token.
type OIDCProvider struct {
	name     string
	oauth    *oauth2.Config
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

// NewOIDCProvider discovers cfg.Issuer and returns a ready provider.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("federation: provider name is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("federation: %s: client id, secret and redirect url are required", cfg.Name)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("federation: %s: issuer is required", cfg.Name)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ctx = oidc.ClientContext(ctx, client)

	p, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("federation: %s: discovery: %w", cfg.Name, err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCProvider{
		name: cfg.Name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     p.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		provider: p,
		verifier: p.VerifierContext(context.WithoutCancel(ctx), &oidc.Config{ClientID: cfg.ClientID}),
		client:   client,
	}, nil
}

// NewGoogle returns the Google provider.
func NewGoogle(ctx context.Context, clientID, clientSecret, redirectURL string) (*OIDCProvider, error) {
	return NewOIDCProvider(ctx, OIDCConfig{
		Name:         "google",
		Issuer:       GoogleIssuer,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	})
}

// Name implements Provider.
func (p *OIDCProvider) Name() string { return p.name }

// AuthCodeURL implements Provider.
func (p *OIDCProvider) AuthCodeURL(c Challenge) string {
	return p.oauth.AuthCodeURL(c.State,
		oauth2.S256ChallengeOption(c.Verifier),
		oidc.Nonce(c.Nonce),
	)
}

// claims is the subset of id_token / userinfo claims mapped into a profile.
type claims struct {
	Subject       string        `json:"sub"`
	Email         string        `json:"email"`
	EmailVerified *stringOrBool `json:"email_verified"`
	GivenName     string        `json:"given_name"`
	FamilyName    string        `json:"family_name"`
	Picture       string        `json:"picture"`
}

// stringOrBool accepts both true and "true".
type stringOrBool bool

func (b *stringOrBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`:
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

func (c *claims) complete() bool {
	return c.Email != "" && c.GivenName != "" && c.FamilyName != "" && c.Picture != ""
}

// merge fills blanks in c from other.
func (c *claims) merge(other claims) {
	if c.Email == "" {
		c.Email = other.Email
		c.EmailVerified = other.EmailVerified
	}
	if c.GivenName == "" {
		c.GivenName = other.GivenName
	}
	if c.FamilyName == "" {
		c.FamilyName = other.FamilyName
	}
	if c.Picture == "" {
		c.Picture = other.Picture
	}
}

func (c claims) profile(provider string) identity.ExternalProfile {
	verified := c.EmailVerified == nil || bool(*c.EmailVerified)
	return identity.ExternalProfile{
		Provider:      provider,
		Subject:       c.Subject,
		Email:         strings.TrimSpace(c.Email),
		GivenName:     strings.TrimSpace(c.GivenName),
		FamilyName:    strings.TrimSpace(c.FamilyName),
		AvatarURL:     strings.TrimSpace(c.Picture),
		EmailVerified: verified,
	}
}

// Exchange implements Provider.
func (p *OIDCProvider) Exchange(ctx context.Context, code string, c Challenge) (identity.ExternalProfile, error) {
	if code == "" {
		return identity.ExternalProfile{}, errors.New("federation: missing authorization code")
	}
	ctx = oidc.ClientContext(ctx, p.client)

	tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(c.Verifier))
	if err != nil {
		return identity.ExternalProfile{}, fmt.Errorf("federation: %s: exchange: %w", p.name, err)
	}

	rawID, ok := tok.Extra("id_token").(string)
	if !ok || rawID == "" {
		return identity.ExternalProfile{}, fmt.Errorf("federation: %s: no id_token in token response", p.name)
	}
	idt, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return identity.ExternalProfile{}, fmt.Errorf("federation: %s: verify id_token: %w", p.name, err)
	}
	if idt.Nonce != c.Nonce {
		return identity.ExternalProfile{}, fmt.Errorf("federation: %s: id_token nonce mismatch", p.name)
	}

	var cl claims
	if err := idt.Claims(&cl); err != nil {
		return identity.ExternalProfile{}, fmt.Errorf("federation: %s: id_token claims: %w", p.name, err)
	}
	cl.Subject = idt.Subject

	if !cl.complete() && p.provider.UserInfoEndpoint() != "" {
		ui, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			return identity.ExternalProfile{}, fmt.Errorf("federation: %s: userinfo: %w", p.name, err)
		}
		if ui.Subject != idt.Subject {
			return identity.ExternalProfile{}, fmt.Errorf("federation: %s: userinfo subject mismatch", p.name)
		}
		var extra claims
		if err := ui.Claims(&extra); err != nil {
			return identity.ExternalProfile{}, fmt.Errorf("federation: %s: userinfo claims: %w", p.name, err)
		}
		cl.merge(extra)
	}

	return cl.profile(p.name), nil
}
