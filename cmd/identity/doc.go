// Package identity implements gatekeep's identity foundation.
//
// It owns the Identity record (one per username, where a username is an email
// address), the credential store boundary used by the local and federated login
// paths, and the bounded password Hasher shared by both.
//
// Three stores are provided: PostgreSQL (pgx), SQLite (modernc) and an in-memory
// store for tests and single-process development. All of them enforce username
// uniqueness atomically and report duplicates as ConflictError.
package identity
