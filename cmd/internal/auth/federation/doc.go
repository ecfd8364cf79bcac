// Package federation talks to external OpenID Connect identity providers.
//
// A login starts with NewChallenge (state, PKCE verifier, nonce) and AuthCodeURL;
// the callback hands the code and the same challenge to Exchange, which returns a
// fixed-shape identity.ExternalProfile. Resolving that profile into a local
// identity is the account package's job.
package federation
