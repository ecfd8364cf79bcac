// Package token provides opaque session tokens and their storage digests.
//
// Raw tokens are handed to clients exactly once; stores only ever see the digest.
//
// Modes:
// - HMAC-SHA256(token, key) when a key is configured (production).
// - SHA-256(token) otherwise (dev / single-process).
//
// Both produce a stable 64-char hex output for storage and lookup.
package token
