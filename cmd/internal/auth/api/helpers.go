package authapi

import (
	"strings"

	"gatekeep/cmd/internal/auth/session"
)

func toUserResponse(s session.Snapshot) userResponse {
	return userResponse{
		ID:             s.IdentityID,
		Username:       s.Username,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		AvatarURL:      s.AvatarURL,
		CredentialKind: string(s.CredentialKind),
		CapturedAt:     s.CapturedAt,
	}
}

func toHomeView(s session.Snapshot) homeView {
	return homeView{FirstName: s.FirstName, AvatarURL: s.AvatarURL, Username: s.Username}
}

func toSessionResponse(issued session.Issued) sessionResponse {
	return sessionResponse{
		SessionID: issued.SessionID,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
