// Package auth provides account credentials and bearer token handling for contactbook.
//
// # Overview
//
// The package owns three pieces of the identity path:
//
//   - PasswordHasher: salted argon2id digests with constant-time verification
//   - TokenIssuer: HS256 bearer tokens carrying a fixed Claims struct
//   - Service: register, login and password change over an AccountStore
//
// # Passwords
//
//	hasher := auth.NewPasswordHasher(auth.DefaultArgon2Params())
//	digest, salt, err := hasher.Hash("s3cret")
//	ok := hasher.Verify("s3cret", digest, salt)
//
// Every Hash call draws a fresh salt, so two digests of the same password differ.
// Verify returns false for malformed digests instead of failing.
//
// # Tokens
//
//	issuer, err := auth.NewTokenIssuer([]byte(secret))
//	token, err := issuer.Issue("alice", 42)
//	v := issuer.Validate(token)
//	switch v.Status {
//	case auth.StatusOK:            // v.Claims.Subject == "alice", v.Claims.AccountID == 42
//	case auth.StatusUnauthenticated: // bad signature, expired, wrong issuer
//	case auth.StatusMalformed:       // not a token at all
//	}
//
// NewTokenIssuer refuses an empty secret. Tokens expire after one hour by default.
// Issuing a new token does not revoke earlier ones; the token stored on the
// account row is informational and never consulted during validation.
//
// # Errors
//
// Callers map errors to responses:
//
//	*ValidationError      - missing field, rejected before any store access
//	ErrUsernameTaken      - duplicate registration
//	ErrInvalidCredentials - unknown user, wrong password, wrong current password
//	anything else         - internal failure
package auth
