package token

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "PACKS_TOKEN_HMAC_KEY"

	// MinKeyBytes is the shortest accepted signing secret.
	MinKeyBytes = 32

	defaultLeeway = 30 * time.Second
)

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	return KeyFromString(os.Getenv(HMACEnvKey), minBytes)
}

// KeyFromString applies the HMACKeyFromEnv policy to an already loaded secret.
func KeyFromString(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Claims carried by a bearer token. Subject holds the user uuid.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues tokens. It exists for tooling and tests; production tokens
// come from the identity provider sharing the secret.
type Signer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewSigner returns a Signer for key, which must satisfy MinKeyBytes.
func NewSigner(key []byte, issuer string) (*Signer, error) {
	if len(key) < MinKeyBytes {
		return nil, ErrHMACKeyTooShort
	}
	return &Signer{key: key, issuer: strings.TrimSpace(issuer), now: time.Now}, nil
}

// Sign returns a token for user that expires after ttl.
func (s *Signer) Sign(user uuid.UUID, ttl time.Duration) (string, error) {
	if user == uuid.Nil || ttl <= 0 {
		return "", ErrInvalidToken
	}
	now := s.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   user.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier checks bearer tokens.
type Verifier struct {
	key    []byte
	issuer string
	parser *jwt.Parser
}

// VerifierOption configures a Verifier.
type VerifierOption func(*verifierConfig)

type verifierConfig struct {
	now    func() time.Time
	leeway time.Duration
}

// WithClock overrides the time used for exp/nbf checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(c *verifierConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLeeway sets the allowed clock skew (default 30s).
func WithLeeway(d time.Duration) VerifierOption {
	return func(c *verifierConfig) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// NewVerifier returns a Verifier for key. A non-empty issuer is required on every token.
func NewVerifier(key []byte, issuer string, opts ...VerifierOption) (*Verifier, error) {
	if len(key) == 0 {
		return nil, ErrHMACKeyMissing
	}
	if len(key) < MinKeyBytes {
		return nil, ErrHMACKeyTooShort
	}

	cfg := verifierConfig{now: time.Now, leeway: defaultLeeway}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	issuer = strings.TrimSpace(issuer)
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.leeway),
		jwt.WithTimeFunc(cfg.now),
	}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}

	return &Verifier{key: key, issuer: issuer, parser: jwt.NewParser(parserOpts...)}, nil
}

// Verify checks the signature and time claims of raw and returns the subject uuid.
func (v *Verifier) Verify(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrInvalidToken
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := uuid.Parse(claims.Subject)
	if err != nil || user == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return user, nil
}

// BearerFromHeader extracts the token from an Authorization header value.
func BearerFromHeader(h string) (string, bool) {
	h = strings.TrimSpace(h)
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
