// Package password provides password hashing and verification utilities.
//
// New digests use Argon2id (default) or bcrypt, both in self-describing encoded
// form. Verify accepts either scheme, so bcrypt digests written by earlier
// deployments keep working after the default moves to Argon2id.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
package password
