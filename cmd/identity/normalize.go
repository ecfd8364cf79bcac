package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization of a username.
// Usernames are email addresses, so this is the same rule as NormalizeEmail.
// Note: for now we only trim + lower-case. Additional rules (unicode confusables)
// can be added later behind a versioned policy.
func NormalizeUsername(s string) string {
	return NormalizeEmail(s)
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
