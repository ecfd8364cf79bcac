// Package account implements the three ways an identity is obtained:
// local password authentication, local registration, and resolution of an
// externally asserted (federated) profile into a local identity.
//
// Store and hasher are passed in explicitly; the package holds no global state.
package account
