// Package identity authenticates callers of the registry API.
//
// It provides:
//   - LoadOrCreateKey   loads or generates the RSA signing key
//   - KeyStore          checks a principal's API key against a bcrypt hash
//   - CallerTokenIssuer issues and verifies RS256 caller tokens
//   - RequireCaller     Gin middleware enforcing a Bearer caller token
package identity
