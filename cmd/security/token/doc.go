// Package token signs and verifies the bearer tokens that identify callers.
//
// Tokens are HS256 JWTs whose subject is the caller's user uuid. The trust
// tier is never taken from the token; callers resolve it from the user store.
//
// Environment:
//   - PACKS_TOKEN_HMAC_KEY: signing secret, at least MinKeyBytes long.
//   - PACKS_TOKEN_ISSUER: expected "iss" claim (optional).
package token
