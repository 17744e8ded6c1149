package app

import (
	"errors"

	"packs/cmd/security/token"
)

// ValidateSecurityConfig enforces the token key policy at startup.
// The invitee API is only served with a database, so the key is required then.
func ValidateSecurityConfig(cfg Config) error {
	if cfg.DatabaseURL == "" {
		return nil
	}

	// Bytes, not runes: the key is used as raw HMAC input.
	if _, err := token.KeyFromString(cfg.TokenHMACKey, token.MinKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: PACKS_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: PACKS_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}
	return nil
}
