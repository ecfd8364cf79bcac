package session

import (
	"time"

	"gatekeep/cmd/identity"
)

// Snapshot is the identity as captured when the session was established.
// It deliberately omits the credential digest.
type Snapshot struct {
	IdentityID     string                  `json:"id"`
	Username       string                  `json:"username"`
	FirstName      string                  `json:"first_name,omitempty"`
	LastName       string                  `json:"last_name,omitempty"`
	CredentialKind identity.CredentialKind `json:"credential_kind"`
	AvatarURL      *string                 `json:"avatar_url,omitempty"`
	CapturedAt     time.Time               `json:"captured_at"`
}

// SnapshotOf captures ident at now.
func SnapshotOf(ident identity.Identity, now time.Time) Snapshot {
	s := Snapshot{
		IdentityID:     ident.ID,
		Username:       ident.Username,
		FirstName:      ident.FirstName,
		LastName:       ident.LastName,
		CredentialKind: ident.CredentialKind,
		CapturedAt:     now.UTC(),
	}
	if ident.AvatarURL != nil {
		a := *ident.AvatarURL
		s.AvatarURL = &a
	}
	return s
}
