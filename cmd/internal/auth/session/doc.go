// Package session binds an authenticated identity to an opaque, server-held session.
//
// A session stores a Snapshot of the identity taken when it was established. Resolve
// returns that snapshot and never re-reads the identity store, so profile changes
// made elsewhere are only visible after the user signs in again.
//
// Clients hold the raw token; stores hold only its digest (see security/token).
package session
