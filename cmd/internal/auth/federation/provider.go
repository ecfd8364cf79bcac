package federation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/oauth2"

	"gatekeep/cmd/identity"
)

// ErrUnknownProvider is returned by Registry.Get for unconfigured names.
var ErrUnknownProvider = errors.New("federation: unknown provider")

// Challenge is the per-attempt secret material carried from start to callback.
type Challenge struct {
	State    string
	Verifier string
	Nonce    string
}

// NewChallenge returns fresh random state, PKCE verifier and nonce.
func NewChallenge() (Challenge, error) {
	state, err := randomString(24)
	if err != nil {
		return Challenge{}, err
	}
	nonce, err := randomString(24)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		State:    state,
		Verifier: oauth2.GenerateVerifier(),
		Nonce:    nonce,
	}, nil
}

// Provider is an external identity provider.
type Provider interface {
	// Name is the stable route segment ("google").
	Name() string
	// AuthCodeURL is where the user agent is sent to sign in.
	AuthCodeURL(c Challenge) string
	// Exchange redeems an authorization code and returns the asserted profile.
	Exchange(ctx context.Context, code string, c Challenge) (identity.ExternalProfile, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a Registry; duplicate names are an error.
func NewRegistry(ps ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, dup := r.providers[p.Name()]; dup {
			return nil, fmt.Errorf("federation: duplicate provider %q", p.Name())
		}
		r.providers[p.Name()] = p
	}
	return r, nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, ErrUnknownProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists registered provider names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("federation: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
