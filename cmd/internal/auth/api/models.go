package authapi

import "time"

// credentialsRequest is the login body. Email is accepted as an alias for username.
type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest is the register body. JSON keys match case-insensitively,
// so firstname/lastname are accepted too.
type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// homeView is what the gated home page shows.
type homeView struct {
	FirstName string  `json:"firstName"`
	AvatarURL *string `json:"avatarUrl"`
	Username  string  `json:"username"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	AvatarURL      *string   `json:"avatarUrl"`
	CredentialKind string    `json:"credentialKind"`
	CapturedAt     time.Time `json:"capturedAt"`
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type authResponse struct {
	User    userResponse    `json:"user"`
	Session sessionResponse `json:"session"`
}

type meResponse struct {
	User userResponse `json:"user"`
}
