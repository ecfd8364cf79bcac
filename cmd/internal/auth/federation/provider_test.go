package federation

import (
	"context"
	"errors"
	"testing"

	"gatekeep/cmd/identity"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string                 { return s.name }
func (s stubProvider) AuthCodeURL(Challenge) string { return "https://idp.example/" + s.name }
func (s stubProvider) Exchange(context.Context, string, Challenge) (identity.ExternalProfile, error) {
	return identity.ExternalProfile{}, nil
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(stubProvider{"google"}, nil, stubProvider{"gitlab"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.Names(); len(got) != 2 || got[0] != "gitlab" || got[1] != "google" {
		t.Fatalf("Names = %v", got)
	}
	if p, err := r.Get("google"); err != nil || p.Name() != "google" {
		t.Fatalf("Get(google) = %v, %v", p, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Get(nope) err = %v", err)
	}

	if _, err := NewRegistry(stubProvider{"a"}, stubProvider{"a"}); err == nil {
		t.Fatalf("expected duplicate error")
	}

	var nilReg *Registry
	if _, err := nilReg.Get("google"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("nil registry Get err = %v", err)
	}
}

func TestNewChallenge_Unique(t *testing.T) {
	a, err := NewChallenge()
	if err != nil {
		t.Fatalf("NewChallenge: %v", err)
	}
	b, _ := NewChallenge()
	if a.State == "" || a.Verifier == "" || a.Nonce == "" {
		t.Fatalf("empty challenge fields: %+v", a)
	}
	if a.State == b.State || a.Verifier == b.Verifier || a.Nonce == b.Nonce {
		t.Fatalf("challenges should differ")
	}
}
