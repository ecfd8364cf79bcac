package identity

import (
	"net/mail"
	"net/url"
	"strings"
)

// ExternalProfile is the fixed-shape profile asserted by an external identity provider.
// Email is the correlation key for federation.
type ExternalProfile struct {
	Provider   string
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	AvatarURL  string

	// EmailVerified is false only when the provider explicitly reported an unverified address.
	EmailVerified bool
}

// Validate checks the profile at the provider boundary before it reaches the resolver.
func (p ExternalProfile) Validate() error {
	const op = "identity.ExternalProfile.Validate"

	email := strings.TrimSpace(p.Email)
	if email == "" {
		return invalid(op, "email is required")
	}
	if len(email) > maxUsernameLen {
		return invalid(op, "email too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid(op, "email is malformed")
	}
	if !p.EmailVerified {
		return invalid(op, "email is not verified")
	}
	if len(p.GivenName) > maxNameLen || len(p.FamilyName) > maxNameLen {
		return invalid(op, "name too long")
	}
	if p.AvatarURL != "" {
		if len(p.AvatarURL) > maxAvatarLen {
			return invalid(op, "avatar url too long")
		}
		u, err := url.Parse(p.AvatarURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return invalid(op, "avatar url must be an absolute http(s) url")
		}
	}
	return nil
}

// NewFederatedIdentity maps a validated profile to the identity it creates.
func (p ExternalProfile) NewFederatedIdentity() NewIdentity {
	in := NewIdentity{
		Username:         strings.TrimSpace(p.Email),
		FirstName:        p.GivenName,
		LastName:         p.FamilyName,
		CredentialKind:   CredentialFederated,
		CredentialDigest: FederatedSentinel,
	}
	if p.AvatarURL != "" {
		a := p.AvatarURL
		in.AvatarURL = &a
	}
	return in
}
