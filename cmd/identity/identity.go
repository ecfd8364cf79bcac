package identity

import (
	"context"
	"strings"
	"time"
)

// CredentialKind tags how an identity proves itself on the local path.
type CredentialKind string

const (
	// CredentialLocalPassword identities carry a password digest.
	CredentialLocalPassword CredentialKind = "local_password"
	// CredentialFederated identities were created by an external provider and
	// carry FederatedSentinel instead of a digest.
	CredentialFederated CredentialKind = "federated"
)

// Valid reports whether k is a known credential kind.
func (k CredentialKind) Valid() bool {
	return k == CredentialLocalPassword || k == CredentialFederated
}

// FederatedSentinel is the credential marker stored for federated identities.
// It does not parse as any supported digest format, so local verification
// against it always fails.
const FederatedSentinel = "!federated:no-local-password"

const (
	maxUsernameLen = 254
	maxNameLen     = 128
	maxDigestLen   = 512
	maxAvatarLen   = 2048
)

// Identity is the canonical user record keyed by username.
type Identity struct {
	ID               string
	Username         string
	FirstName        string
	LastName         string
	CredentialKind   CredentialKind
	CredentialDigest string
	AvatarURL        *string
	CreatedAt        time.Time
}

// HasLocalPassword reports whether the local password path may be attempted.
func (i Identity) HasLocalPassword() bool {
	return i.CredentialKind == CredentialLocalPassword && i.CredentialDigest != FederatedSentinel
}

// NewIdentity describes an identity to insert.
type NewIdentity struct {
	Username         string
	FirstName        string
	LastName         string
	CredentialKind   CredentialKind
	CredentialDigest string
	AvatarURL        *string
	Now              time.Time
}

// Store is the credential store boundary.
//
// InsertIdentity is an atomic insert-if-absent on the normalized username:
// when the username is already present it returns ConflictError{Field: "username"}
// and never writes a second row.
type Store interface {
	FindByUsername(ctx context.Context, username string) (Identity, error)
	InsertIdentity(ctx context.Context, in NewIdentity) (Identity, error)
}

// prepare validates in and builds the Identity row it describes, assigning a new id.
// The returned norm is the uniqueness key.
func prepare(op string, in NewIdentity) (Identity, string, error) {
	username := strings.TrimSpace(in.Username)
	norm := NormalizeUsername(username)
	switch {
	case norm == "":
		return Identity{}, "", invalid(op, "username is required")
	case len(username) > maxUsernameLen:
		return Identity{}, "", invalid(op, "username too long")
	case len(in.FirstName) > maxNameLen || len(in.LastName) > maxNameLen:
		return Identity{}, "", invalid(op, "name too long")
	case !in.CredentialKind.Valid():
		return Identity{}, "", invalid(op, "unknown credential kind")
	case in.CredentialDigest == "" || len(in.CredentialDigest) > maxDigestLen:
		return Identity{}, "", invalid(op, "credential digest is required")
	case in.CredentialKind == CredentialFederated && in.CredentialDigest != FederatedSentinel:
		return Identity{}, "", invalid(op, "federated identity must carry the sentinel credential")
	case in.CredentialKind == CredentialLocalPassword && in.CredentialDigest == FederatedSentinel:
		return Identity{}, "", invalid(op, "local identity cannot carry the sentinel credential")
	case in.AvatarURL != nil && len(*in.AvatarURL) > maxAvatarLen:
		return Identity{}, "", invalid(op, "avatar url too long")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := NewULID(now)
	if err != nil {
		return Identity{}, "", err
	}

	var avatar *string
	if in.AvatarURL != nil && strings.TrimSpace(*in.AvatarURL) != "" {
		a := strings.TrimSpace(*in.AvatarURL)
		avatar = &a
	}

	return Identity{
		ID:               id,
		Username:         username,
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		CredentialKind:   in.CredentialKind,
		CredentialDigest: in.CredentialDigest,
		AvatarURL:        avatar,
		CreatedAt:        now.UTC().Truncate(time.Microsecond),
	}, norm, nil
}
