package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyMissing  = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")
	ErrInvalidToken    = errors.New("token invalid")
	ErrExpiredToken    = errors.New("token expired")
)
